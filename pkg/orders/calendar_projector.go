package orders

import (
	"context"
	"fmt"

	"github.com/gestionale-app/commesse-backend/pkg/calendar"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/operators"
)

// CalendarRepositoryFactory builds a calendar repository for a single operator
type CalendarRepositoryFactory func(ctx context.Context, operator *operators.Operator) (calendar.RepositoryInterface, error)

// CalendarProjector mirrors calendar visible activities into the personal
// calendars of their responsible operators
type CalendarProjector struct {
	OrderRepository    OrderRepositoryInterface
	OperatorRepository operators.OperatorRepositoryInterface
	Logger             logger.Interface
	RepositoryFactory  CalendarRepositoryFactory
}

// OnNotify gets called when an order changes
func (p *CalendarProjector) OnNotify(order *Order) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for index := range order.Activities {
		activity := &order.Activities[index]

		if activity.InCalendar {
			p.pushActivity(ctx, order, activity)
			continue
		}

		if activity.CalendarEventID != "" {
			p.removeActivity(ctx, order, activity)
		}
	}
}

func (p *CalendarProjector) pushActivity(ctx context.Context, order *Order, activity *Activity) {
	calendarRepository, ok := p.repositoryFor(ctx, activity.Responsible)
	if !ok {
		return
	}

	event := &calendar.Event{
		Date:        activity.Date,
		Title:       fmt.Sprintf("%s: %s", order.Name, activity.Name),
		Description: fmt.Sprintf("Commessa %s", order.Name),
	}

	if activity.CalendarEventID == "" {
		created, err := calendarRepository.NewEvent(event)
		if err != nil {
			p.Logger.Error("Could not create calendar event", err)
			return
		}

		err = p.OrderRepository.SetActivityCalendarEventID(ctx, order.ID.Hex(), activity.ID, created.CalendarEventID)
		if err != nil {
			p.Logger.Error("Could not store calendar event id", err)
		}
		return
	}

	event.CalendarEventID = activity.CalendarEventID
	err := calendarRepository.UpdateEvent(event)
	if err != nil {
		p.Logger.Error("Could not update calendar event", err)
	}
}

func (p *CalendarProjector) removeActivity(ctx context.Context, order *Order, activity *Activity) {
	calendarRepository, ok := p.repositoryFor(ctx, activity.Responsible)
	if !ok {
		return
	}

	err := calendarRepository.DeleteEvent(activity.CalendarEventID)
	if err != nil {
		p.Logger.Error("Could not delete calendar event", err)
		return
	}

	err = p.OrderRepository.SetActivityCalendarEventID(ctx, order.ID.Hex(), activity.ID, "")
	if err != nil {
		p.Logger.Error("Could not clear calendar event id", err)
	}
}

func (p *CalendarProjector) repositoryFor(ctx context.Context, operatorID string) (calendar.RepositoryInterface, bool) {
	if operatorID == "" {
		return nil, false
	}

	operator, err := p.OperatorRepository.FindByID(ctx, operatorID)
	if err != nil {
		p.Logger.Error("Could not find operator "+operatorID, err)
		return nil, false
	}

	if !operator.GoogleCalendarConnection.IsConnected() {
		return nil, false
	}

	calendarRepository, err := p.RepositoryFactory(ctx, operator)
	if err != nil {
		p.Logger.Error("Could not build calendar repository for "+operatorID, err)
		return nil, false
	}

	return calendarRepository, true
}
