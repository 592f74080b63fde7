package models

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkin/kv"
)

// Fixed key names of the serialized collections.
const (
	KeyEvents     = "events"
	KeyPeople     = "people"
	KeyAttendance = "attendance"
)

// LocalStore serializes each collection as one JSON array under a fixed key.
// It is only safe for a single process: uniqueness of attendance pairs relies
// on lookup-before-insert under mu.
type LocalStore struct {
	kv    kv.Store
	mu    sync.Mutex
	newID func() string
	now   func() time.Time
}

var _ RecordStore = (*LocalStore)(nil)

type LocalOption func(*LocalStore)

func WithIDGenerator(f func() string) LocalOption {
	return func(s *LocalStore) { s.newID = f }
}

func WithClock(f func() time.Time) LocalOption {
	return func(s *LocalStore) { s.now = f }
}

func NewLocalStore(store kv.Store, opts ...LocalOption) *LocalStore {
	s := &LocalStore{kv: store, newID: NewTimeOrderedID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTimeOrderedID returns a UUIDv7: time-derived, sortable, and unique even
// when two records are created within the same millisecond.
func NewTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func loadList[T any](ctx context.Context, store kv.Store, key string) ([]T, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, unavailable("read "+key, err)
	}
	out := []T{}
	if !ok || len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, unavailable("decode "+key, err)
	}
	return out, nil
}

func saveList[T any](ctx context.Context, store kv.Store, key string, data []T) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return unavailable("encode "+key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return unavailable("write "+key, err)
	}
	return nil
}

/* -------------------- Events -------------------- */

func (s *LocalStore) ListEvents(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadList[Event](ctx, s.kv, KeyEvents)
}

func (s *LocalStore) GetEvent(ctx context.Context, id string) (Event, bool, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return Event{}, false, err
	}
	for _, e := range events {
		if e.ID == id {
			return e, true, nil
		}
	}
	return Event{}, false, nil
}

func (s *LocalStore) UpsertEvent(ctx context.Context, p EventPatch) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := loadList[Event](ctx, s.kv, KeyEvents)
	if err != nil {
		return Event{}, err
	}

	var out Event
	if p.ID != "" {
		idx := -1
		for i := range data {
			if data[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Event{}, fmt.Errorf("event %s: %w", p.ID, ErrNotFound)
		}
		p.Apply(&data[idx])
		out = data[idx]
	} else {
		out = Event{ID: s.newID(), CreatedAt: s.now().UTC()}
		p.Apply(&out)
		data = append(data, out)
	}

	if err := saveList(ctx, s.kv, KeyEvents, data); err != nil {
		return Event{}, err
	}
	return out, nil
}

/* -------------------- People -------------------- */

func (s *LocalStore) ListPeople(ctx context.Context) ([]Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadList[Person](ctx, s.kv, KeyPeople)
}

func (s *LocalStore) GetPerson(ctx context.Context, id string) (Person, bool, error) {
	people, err := s.ListPeople(ctx)
	if err != nil {
		return Person{}, false, err
	}
	for _, p := range people {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Person{}, false, nil
}

func (s *LocalStore) ListPeopleByEvent(ctx context.Context, eventID string) ([]Person, error) {
	people, err := s.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *LocalStore) UpsertPerson(ctx context.Context, p PersonPatch) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := loadList[Person](ctx, s.kv, KeyPeople)
	if err != nil {
		return Person{}, err
	}

	var out Person
	if p.ID != "" {
		idx := -1
		for i := range data {
			if data[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Person{}, fmt.Errorf("person %s: %w", p.ID, ErrNotFound)
		}
		p.Apply(&data[idx])
		out = data[idx]
	} else {
		out = Person{ID: s.newID(), CreatedAt: s.now().UTC()}
		p.Apply(&out)
		data = append(data, out)
	}

	if err := saveList(ctx, s.kv, KeyPeople, data); err != nil {
		return Person{}, err
	}
	return out, nil
}

/* --------------- Attendance ------------------ */

func (s *LocalStore) SetPresence(ctx context.Context, eventID, personID string, present bool) (Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := loadList[Attendance](ctx, s.kv, KeyAttendance)
	if err != nil {
		return Attendance{}, err
	}

	now := s.now().UTC()
	idx := -1
	for i := range data {
		if data[i].EventID == eventID && data[i].PersonID == personID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		data[idx].Present = present
		data[idx].UpdatedAt = now
	} else {
		data = append(data, Attendance{EventID: eventID, PersonID: personID, Present: present, UpdatedAt: now})
		idx = len(data) - 1
	}

	if err := saveList(ctx, s.kv, KeyAttendance, data); err != nil {
		return Attendance{}, err
	}
	return data[idx], nil
}

func (s *LocalStore) ListAttendanceByEvent(ctx context.Context, eventID string) ([]Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := loadList[Attendance](ctx, s.kv, KeyAttendance)
	if err != nil {
		return nil, err
	}
	out := make([]Attendance, 0, len(data))
	for _, a := range data {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}
