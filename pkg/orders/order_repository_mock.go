package orders

import (
	"context"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockOrderRepository is an order repository for testing
type MockOrderRepository struct {
	Orders         []*Order
	ArchivedOrders []*Order
	subscribers    []OrderObserver
}

// Add adds an order
func (m *MockOrderRepository) Add(_ context.Context, order *Order) error {
	order.CreatedAt = time.Now()
	order.LastModifiedAt = time.Now()
	order.ID = primitive.NewObjectID()

	for index := range order.Activities {
		if order.Activities[index].ID == "" {
			order.Activities[index].ID = uuid.New().String()
			order.Activities[index].Status = StatusStandby
		}
	}

	m.Orders = append(m.Orders, order)

	m.Publish(order)
	return nil
}

// Update updates an order
func (m *MockOrderRepository) Update(_ context.Context, order *OrderUpdate) error {
	for i, o := range m.Orders {
		if o.ID == order.ID {
			order.LastModifiedAt = time.Now()
			updated := Order(*order)
			m.Orders[i] = &updated

			m.Publish(&updated)
			return nil
		}
	}

	return errors.New("order not found")
}

// FindAll finds all orders. Filters are not implemented
func (m *MockOrderRepository) FindAll(_ context.Context, page int, pageSize int, _ []Filter) ([]Order, int, error) {
	var orders []Order
	for _, o := range m.Orders {
		orders = append(orders, *o)
	}

	return orders, len(orders), nil
}

// FindByID finds an order
func (m *MockOrderRepository) FindByID(_ context.Context, orderID string) (Order, error) {
	orderObjectID, _ := primitive.ObjectIDFromHex(orderID)
	for _, o := range m.Orders {
		if o.ID == orderObjectID {
			return *o, nil
		}
	}

	return Order{}, errors.New("order not found")
}

// FindUpdatableByID finds an order for an update
func (m *MockOrderRepository) FindUpdatableByID(_ context.Context, orderID string) (*OrderUpdate, error) {
	orderObjectID, _ := primitive.ObjectIDFromHex(orderID)
	for _, o := range m.Orders {
		if o.ID == orderObjectID {
			update := OrderUpdate(*o)
			update.Activities = append([]Activity(nil), o.Activities...)
			return &update, nil
		}
	}

	return nil, errors.New("order not found")
}

// FindBusyTimespans collects the committed activity timespans of an operator
func (m *MockOrderRepository) FindBusyTimespans(_ context.Context, operatorID string, exclusion scheduling.Exclusion) ([]date.Timespan, error) {
	var busy []date.Timespan

	for _, o := range m.Orders {
		if exclusion.OrderID != "" && o.ID.Hex() == exclusion.OrderID {
			continue
		}

		for _, activity := range o.Activities {
			if activity.Responsible != operatorID {
				continue
			}
			if exclusion.ActivityID != "" && activity.ID == exclusion.ActivityID {
				continue
			}

			busy = append(busy, activity.Date)
		}
	}

	return busy, nil
}

// FindCalendarActivities returns all calendar visible activities inside a window
func (m *MockOrderRepository) FindCalendarActivities(_ context.Context, from time.Time, to time.Time) ([]CalendarActivity, error) {
	var results []CalendarActivity

	window := date.Timespan{Start: from, End: to}

	for _, o := range m.Orders {
		for _, activity := range o.Activities {
			if !activity.InCalendar || !window.IntersectsWith(activity.Date) {
				continue
			}

			results = append(results, CalendarActivity{
				OrderID:   o.ID,
				OrderName: o.Name,
				Activity:  activity,
			})
		}
	}

	return results, nil
}

// SetActivityCalendarEventID stores the external calendar event id of an activity
func (m *MockOrderRepository) SetActivityCalendarEventID(_ context.Context, orderID string, activityID string, calendarEventID string) error {
	orderObjectID, _ := primitive.ObjectIDFromHex(orderID)
	for _, o := range m.Orders {
		if o.ID != orderObjectID {
			continue
		}

		for index := range o.Activities {
			if o.Activities[index].ID == activityID {
				o.Activities[index].CalendarEventID = calendarEventID
				return nil
			}
		}
	}

	return errors.New("activity not found")
}

// Archive moves an order into the archive
func (m *MockOrderRepository) Archive(_ context.Context, orderID string) error {
	orderObjectID, _ := primitive.ObjectIDFromHex(orderID)
	for i, o := range m.Orders {
		if o.ID == orderObjectID {
			m.ArchivedOrders = append(m.ArchivedOrders, o)
			m.Orders = append(m.Orders[:i], m.Orders[i+1:]...)
			return nil
		}
	}

	return errors.New("order not found")
}

// Delete deletes an order
func (m *MockOrderRepository) Delete(_ context.Context, orderID string) error {
	orderObjectID, _ := primitive.ObjectIDFromHex(orderID)
	for i, o := range m.Orders {
		if o.ID == orderObjectID {
			m.Orders = append(m.Orders[:i], m.Orders[i+1:]...)
			return nil
		}
	}

	return errors.New("order not found")
}

// Subscribe is useful for listening to order changes
func (m *MockOrderRepository) Subscribe(o OrderObserver) {
	m.subscribers = append(m.subscribers, o)
}

// Unsubscribe unsubscribes from a subscription
func (m *MockOrderRepository) Unsubscribe(o OrderObserver) {
	for i, subscriber := range m.subscribers {
		if subscriber == o {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Publish publishes an order to all subscribers synchronously so tests stay deterministic
func (m *MockOrderRepository) Publish(order *Order) {
	for _, subscriber := range m.subscribers {
		subscriber.OnNotify(order)
	}
}
