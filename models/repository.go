package models

import (
	"context"
	"time"
)

// ===== Events =====
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type EventStore interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, bool, error)
	UpsertEvent(ctx context.Context, p EventPatch) (Event, error)
}

// EventDeleter is implemented only by stores that support explicit deletion.
// Deleting an event leaves its people and attendance records in place.
type EventDeleter interface {
	DeleteEvent(ctx context.Context, id string) error
}

// ===== People =====
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	PhotoURI  string    `json:"photoUri,omitempty"`
	EventID   string    `json:"eventId"` // empty means unassigned
	CreatedAt time.Time `json:"createdAt"`
}

type PersonStore interface {
	ListPeople(ctx context.Context) ([]Person, error)
	GetPerson(ctx context.Context, id string) (Person, bool, error)
	UpsertPerson(ctx context.Context, p PersonPatch) (Person, error)
	ListPeopleByEvent(ctx context.Context, eventID string) ([]Person, error)
}

// ===== Attendance =====
type Attendance struct {
	EventID   string    `json:"eventId"`
	PersonID  string    `json:"personId"`
	Present   bool      `json:"present"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttendanceLedger keeps at most one Attendance record per (event, person) pair.
type AttendanceLedger interface {
	SetPresence(ctx context.Context, eventID, personID string, present bool) (Attendance, error)
	ListAttendanceByEvent(ctx context.Context, eventID string) ([]Attendance, error)
}

// RecordStore is the persistence capability the facade is built on. LocalStore
// and MongoStore are interchangeable implementations.
type RecordStore interface {
	EventStore
	PersonStore
	AttendanceLedger
}

// ===== Accounts =====
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"` // bcrypt hash once stored
	CreatedAt time.Time `json:"createdAt"`
}

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	ValidateCredentials(ctx context.Context, email, plain string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	UpdatePassword(ctx context.Context, id, plain string) error
}
