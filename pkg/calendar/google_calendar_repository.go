package calendar

import (
	"context"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/calendar/google"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
	"golang.org/x/oauth2"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleCalendarRepository provides functions for editing an operator's google calendar
type GoogleCalendarRepository struct {
	Config   *oauth2.Config
	Logger   logger.Interface
	Service  *gcalendar.Service
	operator *operators.Operator
}

// NewGoogleCalendarRepository constructs a GoogleCalendarRepository
func NewGoogleCalendarRepository(ctx context.Context, operator *operators.Operator, logger logger.Interface) (*GoogleCalendarRepository, error) {
	newRepo := GoogleCalendarRepository{}

	config, err := google.ReadGoogleConfig()
	if err != nil {
		return nil, err
	}

	newRepo.Config = config

	if operator.GoogleCalendarConnection.Token.AccessToken == "" {
		return nil, ErrAuthInvalid
	}

	if operator.GoogleCalendarConnection.Token.Expiry.Before(time.Now()) {
		source := newRepo.Config.TokenSource(ctx, &operator.GoogleCalendarConnection.Token)
		newToken, err := source.Token()
		if err != nil {
			return nil, err
		}
		operator.GoogleCalendarConnection.Token = *newToken
	}

	client := newRepo.Config.Client(ctx, &operator.GoogleCalendarConnection.Token)

	srv, err := gcalendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	newRepo.Service = srv
	newRepo.Logger = logger
	newRepo.operator = operator

	return &newRepo, nil
}

func (c *GoogleCalendarRepository) calendarID() string {
	if c.operator.GoogleCalendarConnection.CalendarID != "" {
		return c.operator.GoogleCalendarConnection.CalendarID
	}
	return "primary"
}

func checkForInvalidTokenError(err error) error {
	if e, ok := err.(*googleapi.Error); ok {
		if e.Code == 401 {
			return ErrAuthInvalid
		}
	}

	return err
}

func checkForIsGone(err error) error {
	if e, ok := err.(*googleapi.Error); ok {
		if e.Code == 410 || e.Code == 404 {
			return nil
		}
	}

	return err
}

// NewEvent creates a new Event in Google Calendar
func (c *GoogleCalendarRepository) NewEvent(event *Event) (*Event, error) {
	googleEvent := c.createGoogleEvent(event)

	createdEvent, err := c.Service.Events.Insert(c.calendarID(), googleEvent).Do()
	if err != nil {
		return nil, checkForInvalidTokenError(err)
	}

	event.CalendarType = CalendarTypeGoogleCalendar
	event.CalendarEventID = createdEvent.Id

	return event, nil
}

// UpdateEvent updates an existing Google Calendar event
func (c *GoogleCalendarRepository) UpdateEvent(event *Event) error {
	googleEvent := c.createGoogleEvent(event)

	_, err := c.Service.Events.Update(c.calendarID(), event.CalendarEventID, googleEvent).Do()
	if err != nil {
		return checkForInvalidTokenError(err)
	}

	return nil
}

// DeleteEvent removes an event from Google Calendar. A previously deleted event is not an error
func (c *GoogleCalendarRepository) DeleteEvent(calendarEventID string) error {
	err := c.Service.Events.Delete(c.calendarID(), calendarEventID).Do()
	if err != nil {
		return checkForIsGone(checkForInvalidTokenError(err))
	}

	return nil
}

func (c *GoogleCalendarRepository) createGoogleEvent(event *Event) *gcalendar.Event {
	return &gcalendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start: &gcalendar.EventDateTime{
			DateTime: event.Date.Start.Format(time.RFC3339),
		},
		End: &gcalendar.EventDateTime{
			DateTime: event.Date.End.Format(time.RFC3339),
		},
	}
}
