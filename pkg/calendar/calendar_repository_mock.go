package calendar

import (
	"fmt"

	"github.com/pkg/errors"
)

// MockCalendarRepository is a calendar repository for testing
type MockCalendarRepository struct {
	Events  map[string]*Event
	counter int
}

// NewMockCalendarRepository builds a new MockCalendarRepository
func NewMockCalendarRepository() *MockCalendarRepository {
	return &MockCalendarRepository{
		Events: map[string]*Event{},
	}
}

// NewEvent adds a new event
func (r *MockCalendarRepository) NewEvent(event *Event) (*Event, error) {
	r.counter++

	event.CalendarType = "mock-calendar"
	event.CalendarEventID = fmt.Sprintf("mock-event-%d", r.counter)
	r.Events[event.CalendarEventID] = event

	return event, nil
}

// UpdateEvent updates an existing event
func (r *MockCalendarRepository) UpdateEvent(event *Event) error {
	_, exists := r.Events[event.CalendarEventID]
	if !exists {
		return errors.New("event does not exist")
	}

	r.Events[event.CalendarEventID] = event
	return nil
}

// DeleteEvent removes an event
func (r *MockCalendarRepository) DeleteEvent(calendarEventID string) error {
	delete(r.Events, calendarEventID)
	return nil
}
