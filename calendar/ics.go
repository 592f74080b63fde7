// Package calendar exports events as iCalendar so they can be added to a
// phone or desktop calendar.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"checkin/models"
)

const (
	ProductID   = "-//checkin//EN"
	ContentType = "text/calendar; charset=utf-8"
	uidDomain   = "checkin"
)

// Write encodes events as one VCALENDAR. stamp becomes DTSTAMP.
// People with an e-mail are listed as attendees of their event.
func Write(w io.Writer, stamp time.Time, events []models.Event, people []models.Person) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, e := range events {
		ve := ical.NewComponent(ical.CompEvent)
		ve.Props.SetText(ical.PropUID, e.ID+"@"+uidDomain)
		ve.Props.SetText(ical.PropSummary, e.Title)
		ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeStart, e.Date.UTC())
		if e.Location != "" {
			ve.Props.SetText(ical.PropLocation, e.Location)
		}
		if e.Description != "" {
			ve.Props.SetText(ical.PropDescription, e.Description)
		}
		for _, p := range people {
			if p.EventID != e.ID || p.Email == "" {
				continue
			}
			att := ical.NewProp(ical.PropAttendee)
			att.Value = "mailto:" + p.Email
			if p.Name != "" {
				att.Params.Set(ical.ParamCommonName, p.Name)
			}
			ve.Props.Add(att)
		}
		cal.Children = append(cal.Children, ve)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
