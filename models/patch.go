package models

import "time"

// EventPatch carries the fields a form submitted. Nil fields are left untouched
// on update. An empty ID means create.
type EventPatch struct {
	ID          string     `json:"id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Description *string    `json:"description,omitempty"`
}

func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
}

// Empty reports whether the patch would change nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Date == nil && p.Location == nil && p.Description == nil
}

type PersonPatch struct {
	ID       string  `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	PhotoURI *string `json:"photoUri,omitempty"`
	EventID  *string `json:"eventId,omitempty"`
}

func (p PersonPatch) Apply(person *Person) {
	if p.Name != nil {
		person.Name = *p.Name
	}
	if p.Email != nil {
		person.Email = *p.Email
	}
	if p.Phone != nil {
		person.Phone = *p.Phone
	}
	if p.PhotoURI != nil {
		person.PhotoURI = *p.PhotoURI
	}
	if p.EventID != nil {
		person.EventID = *p.EventID
	}
}

func (p PersonPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.PhotoURI == nil && p.EventID == nil
}

// Ptr is shorthand for building patches.
func Ptr[T any](v T) *T { return &v }
