package calendar

import (
	"github.com/gestionale-app/commesse-backend/pkg/date"
)

// Type declares in which calendar implementation an event is persisted
type Type string

const (
	// CalendarTypeGoogleCalendar is the Google Calendar implementation
	CalendarTypeGoogleCalendar Type = "google_calendar"
)

// Event represents a simple calendar event
type Event struct {
	Date        date.Timespan `json:"date" validate:"required"`
	Title       string        `json:"-"`
	Description string        `json:"-"`

	CalendarType    Type   `json:"-"`
	CalendarEventID string `json:"-"`
}
