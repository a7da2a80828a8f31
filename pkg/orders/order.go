package orders

import (
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityStatus is the closed set of states an activity can be in
type ActivityStatus string

const (
	// StatusStandby is the initial status of every activity
	StatusStandby ActivityStatus = "Standby"

	// StatusInProgress marks an activity someone is working on
	StatusInProgress ActivityStatus = "In corso"

	// StatusBlocked marks an activity that cannot proceed
	StatusBlocked ActivityStatus = "Bloccato"

	// StatusCompleted marks a finished activity
	StatusCompleted ActivityStatus = "Completato"
)

// Valid checks an ActivityStatus against the closed set
func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusStandby, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// Priority is the closed set of order priorities
type Priority string

const (
	// PriorityLow is "Bassa"
	PriorityLow Priority = "Bassa"

	// PriorityMedium is "Media"
	PriorityMedium Priority = "Media"

	// PriorityHigh is "Alta"
	PriorityHigh Priority = "Alta"

	// PriorityUrgent is "Urgente"
	PriorityUrgent Priority = "Urgente"
)

// Valid checks a Priority against the closed set
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NoteMessage is a chat style message on an activity, append only
type NoteMessage struct {
	Sender  string    `json:"sender" bson:"sender" validate:"required"`
	Content string    `json:"content" bson:"content" validate:"required"`
	SentAt  time.Time `json:"sentAt" bson:"sentAt"`
}

// Activity is a schedulable unit of work inside an order, owned by value
type Activity struct {
	ID          string         `json:"id" bson:"_id"`
	Name        string         `json:"name" bson:"name" validate:"required"`
	Responsible string         `json:"responsible" bson:"responsible" validate:"required"`
	Date        date.Timespan  `json:"date" bson:"date" validate:"required"`
	Status      ActivityStatus `json:"status" bson:"status"`
	Completed   *time.Time     `json:"completed,omitempty" bson:"completed,omitempty"`
	InCalendar  bool           `json:"inCalendar" bson:"inCalendar"`
	Color       string         `json:"color,omitempty" bson:"color,omitempty"`
	Notes       []NoteMessage  `json:"notes" bson:"notes"`

	CalendarEventID string `json:"-" bson:"calendarEventID,omitempty"`
}

// CandidateRow converts an Activity into its draft row shape for validation
func (a *Activity) CandidateRow() scheduling.CandidateRow {
	return scheduling.CandidateRow{
		ActivityID:  a.ID,
		Name:        a.Name,
		Responsible: a.Responsible,
		Color:       a.Color,
		InCalendar:  a.InCalendar,
		Date:        a.Date,
	}
}

// Order is the aggregate business record ("commessa") owning its activities
type Order struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	CustomerID     primitive.ObjectID `json:"customerId" bson:"customerId" validate:"required"`
	ManagerID      primitive.ObjectID `json:"managerId" bson:"managerId"`
	Priority       Priority           `json:"priority" bson:"priority" validate:"required"`
	Material       string             `json:"material" bson:"material"`
	Accessories    string             `json:"accessories" bson:"accessories"`
	Date           date.Timespan      `json:"date" bson:"date"`
	Confirmed      bool               `json:"confirmed" bson:"confirmed"`
	Activities     []Activity         `json:"activities" bson:"activities"`
}

// OrderUpdate is the view of an order for an update
type OrderUpdate struct {
	ID             primitive.ObjectID `json:"-" bson:"_id"`
	CreatedAt      time.Time          `json:"-" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"-" bson:"lastModifiedAt"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	CustomerID     primitive.ObjectID `json:"customerId" bson:"customerId" validate:"required"`
	ManagerID      primitive.ObjectID `json:"managerId" bson:"managerId"`
	Priority       Priority           `json:"priority" bson:"priority" validate:"required"`
	Material       string             `json:"material" bson:"material"`
	Accessories    string             `json:"accessories" bson:"accessories"`
	Date           date.Timespan      `json:"date" bson:"date"`
	Confirmed      bool               `json:"confirmed" bson:"confirmed"`
	Activities     []Activity         `json:"activities" bson:"activities"`
}

// CandidateRows converts all activities of an order into draft rows
func (o *Order) CandidateRows() []scheduling.CandidateRow {
	rows := make([]scheduling.CandidateRow, 0, len(o.Activities))
	for i := range o.Activities {
		rows = append(rows, o.Activities[i].CandidateRow())
	}
	return rows
}

// Responsibles returns the distinct operator ids of all activities, sorted
func (o *Order) Responsibles() []string {
	return distinctResponsibles(o.Activities)
}

// CalendarActivity is an activity joined with its parent order for the calendar view
type CalendarActivity struct {
	OrderID   primitive.ObjectID `json:"orderId" bson:"orderId"`
	OrderName string             `json:"orderName" bson:"orderName"`
	Activity  Activity           `json:"activity" bson:"activity"`
}
