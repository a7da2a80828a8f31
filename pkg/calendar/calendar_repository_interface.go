package calendar

import "errors"

// ErrAuthInvalid is returned when a calendar connection needs to be renewed by the operator
var ErrAuthInvalid = errors.New("calendar authentication is invalid")

// RepositoryInterface is an interface for every calendar implementation e.g. Google Calendar, Microsoft Calendar,...
type RepositoryInterface interface {
	NewEvent(event *Event) (*Event, error)
	UpdateEvent(event *Event) error
	DeleteEvent(calendarEventID string) error
}
