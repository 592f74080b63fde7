// Package repository is the domain-shaped facade over a models.RecordStore.
//
// Read operations fail open: on a storage failure they still return an empty,
// non-nil result together with the classified error, so a screen can render
// and the caller can decide whether to surface or retry. Write operations
// return only the error.
package repository

import (
	"context"
	"fmt"
	"time"

	"checkin/models"
)

type Repository struct {
	store models.RecordStore
	now   func() time.Time
}

func New(store models.RecordStore) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Store exposes the backing store for callers that need a capability check.
func (r *Repository) Store() models.RecordStore { return r.store }

/* -------------------- Events -------------------- */

func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := r.store.ListEvents(ctx)
	if err != nil {
		return []models.Event{}, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *Repository) GetEvent(ctx context.Context, id string) (models.Event, bool, error) {
	e, found, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, found, nil
}

// SaveEvent creates when p.ID is empty and merges p onto the stored event
// otherwise. A new event without a date is dated now; a missing title is
// stored as "" and left for the caller to validate.
func (r *Repository) SaveEvent(ctx context.Context, p models.EventPatch) (models.Event, error) {
	if p.ID == "" {
		if p.Title == nil {
			p.Title = models.Ptr("")
		}
		if p.Date == nil {
			p.Date = models.Ptr(r.now().UTC())
		}
	}
	e, err := r.store.UpsertEvent(ctx, p)
	if err != nil {
		return models.Event{}, fmt.Errorf("save event: %w", err)
	}
	return e, nil
}

// DeleteEvent removes only the event. People and attendance that reference it
// are kept and left dangling.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	d, ok := r.store.(models.EventDeleter)
	if !ok {
		return fmt.Errorf("delete event: %w", models.ErrUnsupported)
	}
	if err := d.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

/* -------------------- People -------------------- */

func (r *Repository) ListPeople(ctx context.Context) ([]models.Person, error) {
	people, err := r.store.ListPeople(ctx)
	if err != nil {
		return []models.Person{}, fmt.Errorf("list people: %w", err)
	}
	return people, nil
}

func (r *Repository) ListPeopleByEvent(ctx context.Context, eventID string) ([]models.Person, error) {
	people, err := r.store.ListPeopleByEvent(ctx, eventID)
	if err != nil {
		return []models.Person{}, fmt.Errorf("list people of %s: %w", eventID, err)
	}
	return people, nil
}

func (r *Repository) GetPerson(ctx context.Context, id string) (models.Person, bool, error) {
	p, found, err := r.store.GetPerson(ctx, id)
	if err != nil {
		return models.Person{}, false, fmt.Errorf("get person %s: %w", id, err)
	}
	return p, found, nil
}

func (r *Repository) SavePerson(ctx context.Context, p models.PersonPatch) (models.Person, error) {
	if p.ID == "" {
		if p.Name == nil {
			p.Name = models.Ptr("")
		}
		if p.EventID == nil {
			p.EventID = models.Ptr("")
		}
	}
	person, err := r.store.UpsertPerson(ctx, p)
	if err != nil {
		return models.Person{}, fmt.Errorf("save person: %w", err)
	}
	return person, nil
}

// SetPhoto records a captured photo reference without touching other fields.
func (r *Repository) SetPhoto(ctx context.Context, personID, uri string) (models.Person, error) {
	return r.SavePerson(ctx, models.PersonPatch{ID: personID, PhotoURI: &uri})
}

/* --------------- Attendance ------------------ */

func (r *Repository) ListAttendanceByEvent(ctx context.Context, eventID string) ([]models.Attendance, error) {
	list, err := r.store.ListAttendanceByEvent(ctx, eventID)
	if err != nil {
		return []models.Attendance{}, fmt.Errorf("list attendance of %s: %w", eventID, err)
	}
	return list, nil
}

func (r *Repository) SetPresence(ctx context.Context, eventID, personID string, present bool) (models.Attendance, error) {
	a, err := r.store.SetPresence(ctx, eventID, personID, present)
	if err != nil {
		return models.Attendance{}, fmt.Errorf("set presence %s/%s: %w", eventID, personID, err)
	}
	return a, nil
}

// PresenceMap reconstructs personID -> present for one event.
func (r *Repository) PresenceMap(ctx context.Context, eventID string) (map[string]bool, error) {
	list, err := r.ListAttendanceByEvent(ctx, eventID)
	out := make(map[string]bool, len(list))
	for _, a := range list {
		out[a.PersonID] = a.Present
	}
	return out, err
}

type RosterEntry struct {
	Person  models.Person `json:"person"`
	Present bool          `json:"present"`
}

// Roster lists the people of an event with their presence flag; a person
// with no attendance record yet is absent.
func (r *Repository) Roster(ctx context.Context, eventID string) ([]RosterEntry, error) {
	people, err := r.ListPeopleByEvent(ctx, eventID)
	if err != nil {
		return []RosterEntry{}, err
	}
	present, err := r.PresenceMap(ctx, eventID)
	out := make([]RosterEntry, 0, len(people))
	for _, p := range people {
		out = append(out, RosterEntry{Person: p, Present: present[p.ID]})
	}
	return out, err
}
