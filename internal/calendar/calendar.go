// Package calendar renders events as iCalendar (RFC 5545) documents.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/emersion/go-ical"
	"github.com/gosimple/slug"
)

// ProductID identifies this service in generated calendars.
const ProductID = "-//campus-events//EN"

// DefaultDuration is the length given to events, which only carry a start time.
const DefaultDuration = time.Hour

// ErrEmpty is returned by Encode when there is no event to export.
// iCalendar requires at least one component.
var ErrEmpty = errors.New("no events to export")

// Encode writes a VCALENDAR holding one VEVENT per event to w.
// now stamps DTSTAMP.
func Encode(w io.Writer, events []model.EventView, now time.Time) error {
	if len(events) == 0 {
		return ErrEmpty
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	for i := range events {
		cal.Children = append(cal.Children, toVEvent(&events[i], now))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toVEvent(e *model.EventView, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID+"@campus-events")
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.Date.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, e.Date.UTC().Add(DefaultDuration))
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropCreated, e.CreatedAt.UTC())
	ve.Props.SetDateTime(ical.PropLastModified, e.UpdatedAt.UTC())

	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Category != "" {
		ve.Props.SetText(ical.PropCategories, e.Category)
	}
	if e.Organizer.Email != "" || e.Organizer.Name != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.Value = "mailto:" + e.Organizer.Email
		if e.Organizer.Name != "" {
			p.Params.Set(ical.ParamCommonName, e.Organizer.Name)
		}
		ve.Props.Add(p)
	}
	return ve
}

// FileName returns a download name for a calendar titled title.
func FileName(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "events"
	}
	return s + ".ics"
}
