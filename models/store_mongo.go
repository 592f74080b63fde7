package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultStoreTimeout bounds every remote round-trip.
const DefaultStoreTimeout = 5 * time.Second

// MongoStore keeps events, people and attendance as documents. Event and person
// ids are ObjectIDs assigned on insert; attendance documents are keyed by
// AttendanceID so concurrent writers from several devices converge on one
// document per pair.
type MongoStore struct {
	events     *mongo.Collection
	people     *mongo.Collection
	attendance *mongo.Collection
	timeout    time.Duration
	now        func() time.Time
}

var (
	_ RecordStore  = (*MongoStore)(nil)
	_ EventDeleter = (*MongoStore)(nil)
)

func NewMongoStore(db *mongo.Database, timeout time.Duration) *MongoStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &MongoStore{
		events:     db.Collection(KeyEvents),
		people:     db.Collection(KeyPeople),
		attendance: db.Collection(KeyAttendance),
		timeout:    timeout,
		now:        time.Now,
	}
}

// AttendanceID is the deterministic document id of an (event, person) pair.
func AttendanceID(eventID, personID string) string {
	return eventID + "_" + personID
}

type eventDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Date        time.Time          `bson:"date"`
	Location    string             `bson:"location,omitempty"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d eventDoc) model() Event {
	return Event{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Date:        d.Date,
		Location:    d.Location,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

type personDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email,omitempty"`
	Phone     string             `bson:"phone,omitempty"`
	PhotoURI  string             `bson:"photoUri,omitempty"`
	EventID   string             `bson:"eventId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d personDoc) model() Person {
	return Person{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		PhotoURI:  d.PhotoURI,
		EventID:   d.EventID,
		CreatedAt: d.CreatedAt,
	}
}

type attendanceDoc struct {
	ID        string    `bson:"_id"`
	EventID   string    `bson:"eventId"`
	PersonID  string    `bson:"personId"`
	Present   bool      `bson:"present"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d attendanceDoc) model() Attendance {
	return Attendance{EventID: d.EventID, PersonID: d.PersonID, Present: d.Present, UpdatedAt: d.UpdatedAt}
}

// EnsureIndexes creates the eventId indexes backing the by-event queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	byEvent := mongo.IndexModel{Keys: bson.D{{Key: "eventId", Value: 1}}}
	if _, err := s.people.Indexes().CreateOne(ctx, byEvent); err != nil {
		return unavailable("index people", err)
	}
	if _, err := s.attendance.Indexes().CreateOne(ctx, byEvent); err != nil {
		return unavailable("index attendance", err)
	}
	return nil
}

func findAll[D any, T any](ctx context.Context, col *mongo.Collection, filter any, opts *options.FindOptions, conv func(D) T) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("find "+col.Name(), err)
	}
	defer cur.Close(ctx)

	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("decode "+col.Name(), err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, conv(d))
	}
	return out, nil
}

/* -------------------- Events -------------------- */

func (s *MongoStore) ListEvents(ctx context.Context) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return findAll(ctx, s.events, bson.M{}, opts, eventDoc.model)
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (Event, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Event{}, false, nil // not an id this store could have issued
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc eventDoc
	err = s.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, unavailable("find event", err)
	}
	return doc.model(), true, nil
}

func eventSet(p EventPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return set
}

func (s *MongoStore) UpsertEvent(ctx context.Context, p EventPatch) (Event, error) {
	if p.ID == "" {
		var e Event
		p.Apply(&e)
		doc := eventDoc{Title: e.Title, Date: e.Date, Location: e.Location, Description: e.Description, CreatedAt: s.now().UTC()}

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		res, err := s.events.InsertOne(ctx, doc)
		if err != nil {
			return Event{}, unavailable("insert event", err)
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return Event{}, fmt.Errorf("insert event: unexpected id type %T", res.InsertedID)
		}
		doc.ID = oid
		return doc.model(), nil
	}

	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: %w", p.ID, ErrNotFound)
	}
	if p.Empty() {
		e, found, err := s.GetEvent(ctx, p.ID)
		if err != nil {
			return Event{}, err
		}
		if !found {
			return Event{}, fmt.Errorf("event %s: %w", p.ID, ErrNotFound)
		}
		return e, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var doc eventDoc
	err = s.events.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": eventSet(p)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Event{}, fmt.Errorf("event %s: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return Event{}, unavailable("update event", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return unavailable("delete event", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

/* -------------------- People -------------------- */

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

func (s *MongoStore) ListPeople(ctx context.Context) ([]Person, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return findAll(ctx, s.people, bson.M{}, newestFirst(), personDoc.model)
}

func (s *MongoStore) ListPeopleByEvent(ctx context.Context, eventID string) ([]Person, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return findAll(ctx, s.people, bson.M{"eventId": eventID}, newestFirst(), personDoc.model)
}

func (s *MongoStore) GetPerson(ctx context.Context, id string) (Person, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Person{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc personDoc
	err = s.people.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Person{}, false, nil
	}
	if err != nil {
		return Person{}, false, unavailable("find person", err)
	}
	return doc.model(), true, nil
}

func personSet(p PersonPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.PhotoURI != nil {
		set["photoUri"] = *p.PhotoURI
	}
	if p.EventID != nil {
		set["eventId"] = *p.EventID
	}
	return set
}

func (s *MongoStore) UpsertPerson(ctx context.Context, p PersonPatch) (Person, error) {
	if p.ID == "" {
		var person Person
		p.Apply(&person)
		doc := personDoc{
			Name:      person.Name,
			Email:     person.Email,
			Phone:     person.Phone,
			PhotoURI:  person.PhotoURI,
			EventID:   person.EventID,
			CreatedAt: s.now().UTC(),
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		res, err := s.people.InsertOne(ctx, doc)
		if err != nil {
			return Person{}, unavailable("insert person", err)
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return Person{}, fmt.Errorf("insert person: unexpected id type %T", res.InsertedID)
		}
		doc.ID = oid
		return doc.model(), nil
	}

	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return Person{}, fmt.Errorf("person %s: %w", p.ID, ErrNotFound)
	}
	if p.Empty() {
		person, found, err := s.GetPerson(ctx, p.ID)
		if err != nil {
			return Person{}, err
		}
		if !found {
			return Person{}, fmt.Errorf("person %s: %w", p.ID, ErrNotFound)
		}
		return person, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var doc personDoc
	err = s.people.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": personSet(p)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Person{}, fmt.Errorf("person %s: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return Person{}, unavailable("update person", err)
	}
	return doc.model(), nil
}

/* --------------- Attendance ------------------ */

func (s *MongoStore) SetPresence(ctx context.Context, eventID, personID string, present bool) (Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := attendanceDoc{
		ID:        AttendanceID(eventID, personID),
		EventID:   eventID,
		PersonID:  personID,
		Present:   present,
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.attendance.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{
			"eventId":   doc.EventID,
			"personId":  doc.PersonID,
			"present":   doc.Present,
			"updatedAt": doc.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return Attendance{}, unavailable("set presence", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListAttendanceByEvent(ctx context.Context, eventID string) ([]Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return findAll(ctx, s.attendance, bson.M{"eventId": eventID}, options.Find(), attendanceDoc.model)
}
