package orders

import (
	"context"
	"sort"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"github.com/gestionale-app/commesse-backend/pkg/scheduling"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepositoryInterface is an interface for a *MongoDBOrderRepository
type OrderRepositoryInterface interface {
	Add(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *OrderUpdate) error
	FindAll(ctx context.Context, page int, pageSize int, filters []Filter) ([]Order, int, error)
	FindByID(ctx context.Context, orderID string) (Order, error)
	FindUpdatableByID(ctx context.Context, orderID string) (*OrderUpdate, error)
	FindBusyTimespans(ctx context.Context, operatorID string, exclusion scheduling.Exclusion) ([]date.Timespan, error)
	FindCalendarActivities(ctx context.Context, from time.Time, to time.Time) ([]CalendarActivity, error)
	SetActivityCalendarEventID(ctx context.Context, orderID string, activityID string, calendarEventID string) error
	Archive(ctx context.Context, orderID string) error
	Delete(ctx context.Context, orderID string) error
	Subscribe(o OrderObserver)
	Unsubscribe(o OrderObserver)
	Publish(order *Order)
}

// OrderObserver is notified about every order change
type OrderObserver interface {
	OnNotify(order *Order)
}

// MongoDBOrderRepository does everything related to storing and finding orders
type MongoDBOrderRepository struct {
	DB          *mongo.Collection
	ArchiveDB   *mongo.Collection
	Logger      logger.Interface
	subscribers []OrderObserver
}

// Add adds an order
func (s *MongoDBOrderRepository) Add(ctx context.Context, order *Order) error {
	order.CreatedAt = time.Now()
	order.LastModifiedAt = time.Now()
	order.ID = primitive.NewObjectID()

	normalizeActivities(order.Activities)

	_, err := s.DB.InsertOne(ctx, order)
	if err != nil {
		return errors.Wrap(err, "could not insert order")
	}

	s.Publish(order)

	return nil
}

// Update updates an order
func (s *MongoDBOrderRepository) Update(ctx context.Context, order *OrderUpdate) error {
	order.LastModifiedAt = time.Now()

	normalizeActivities(order.Activities)

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": order})
	if err != nil {
		return errors.Wrap(err, "could not update order")
	}

	if result.MatchedCount != 1 {
		return errors.New("updated count != 1")
	}

	s.Publish((*Order)(order))

	return nil
}

// normalizeActivities gives new activities an id and the initial status
func normalizeActivities(activities []Activity) {
	for index := range activities {
		if activities[index].ID == "" {
			activities[index].ID = uuid.New().String()
			activities[index].Status = StatusStandby
			activities[index].Completed = nil
		}

		if activities[index].Notes == nil {
			activities[index].Notes = []NoteMessage{}
		}
	}
}

// FindAll finds all orders paginated
func (s *MongoDBOrderRepository) FindAll(ctx context.Context, page int, pageSize int, filters []Filter) ([]Order, int, error) {
	o := []Order{}

	offset := page * pageSize

	findOptions := options.Find()
	findOptions.SetSort(bson.M{"date.start": 1})
	findOptions.SetSkip(int64(offset))
	findOptions.SetLimit(int64(pageSize))

	queryFilter := bson.D{}
	for _, filter := range filters {
		if filter.Operator != "" {
			queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: bson.M{filter.Operator: filter.Value}})
			continue
		}
		queryFilter = append(queryFilter, bson.E{Key: filter.Field, Value: filter.Value})
	}

	cursor, err := s.DB.Find(ctx, queryFilter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.DB.CountDocuments(ctx, queryFilter)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &o)
	if err != nil {
		return nil, 0, err
	}

	return o, int(count), nil
}

// FindByID finds a specific order by ID
func (s *MongoDBOrderRepository) FindByID(ctx context.Context, orderID string) (Order, error) {
	o := Order{}

	orderObjectID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return o, err
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": orderObjectID})
	if result.Err() != nil {
		return o, result.Err()
	}

	err = result.Decode(&o)
	if err != nil {
		return o, err
	}

	return o, nil
}

// FindUpdatableByID finds an order and returns the OrderUpdate view of the model
func (s *MongoDBOrderRepository) FindUpdatableByID(ctx context.Context, orderID string) (*OrderUpdate, error) {
	order, err := s.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return (*OrderUpdate)(&order), nil
}

// FindBusyTimespans returns the timespans of all committed activities assigned to an
// operator, across every order and regardless of activity status. The exclusion
// removes the order or single activity currently being edited from the result.
func (s *MongoDBOrderRepository) FindBusyTimespans(ctx context.Context, operatorID string, exclusion scheduling.Exclusion) ([]date.Timespan, error) {
	var results []struct {
		Span date.Timespan `bson:"span"`
	}

	matchFilter := bson.D{
		{Key: "activities.responsible", Value: operatorID},
	}

	if exclusion.OrderID != "" {
		excludeOrderObjectID, err := primitive.ObjectIDFromHex(exclusion.OrderID)
		if err != nil {
			return nil, err
		}

		matchFilter = append(matchFilter, bson.E{Key: "_id", Value: bson.M{"$ne": excludeOrderObjectID}})
	}

	activityFilter := bson.D{
		{Key: "activities.responsible", Value: operatorID},
	}

	if exclusion.ActivityID != "" {
		activityFilter = append(activityFilter, bson.E{Key: "activities._id", Value: bson.M{"$ne": exclusion.ActivityID}})
	}

	matchStage := bson.D{{Key: "$match", Value: matchFilter}}
	unwindStage := bson.D{{Key: "$unwind", Value: bson.M{"path": "$activities"}}}
	matchStage2 := bson.D{{Key: "$match", Value: activityFilter}}
	projectStage := bson.D{{Key: "$project", Value: bson.M{"span": "$activities.date"}}}

	cursor, err := s.DB.Aggregate(ctx, mongo.Pipeline{matchStage, unwindStage, matchStage2, projectStage})
	if err != nil {
		return nil, errors.Wrap(err, "could not aggregate busy timespans")
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, err
	}

	spans := make([]date.Timespan, 0, len(results))
	for _, result := range results {
		spans = append(spans, result.Span)
	}

	return spans, nil
}

// FindCalendarActivities finds all activities flagged for the calendar whose timespan
// intersects the requested window, joined with their parent order
func (s *MongoDBOrderRepository) FindCalendarActivities(ctx context.Context, from time.Time, to time.Time) ([]CalendarActivity, error) {
	var results []CalendarActivity

	intersects := bson.D{
		{Key: "activities.inCalendar", Value: true},
		{Key: "activities.date.start", Value: bson.M{"$lt": to}},
		{Key: "activities.date.end", Value: bson.M{"$gt": from}},
	}

	matchStage := bson.D{{Key: "$match", Value: bson.D{
		{Key: "activities", Value: bson.M{"$elemMatch": bson.M{
			"inCalendar": true,
			"date.start": bson.M{"$lt": to},
			"date.end":   bson.M{"$gt": from},
		}}},
	}}}
	unwindStage := bson.D{{Key: "$unwind", Value: bson.M{"path": "$activities"}}}
	matchStage2 := bson.D{{Key: "$match", Value: intersects}}
	projectStage := bson.D{{Key: "$project", Value: bson.M{
		"orderId":   "$_id",
		"orderName": "$name",
		"activity":  "$activities",
	}}}
	sortStage := bson.D{{Key: "$sort", Value: bson.M{"activity.date.start": 1}}}

	cursor, err := s.DB.Aggregate(ctx, mongo.Pipeline{matchStage, unwindStage, matchStage2, projectStage, sortStage})
	if err != nil {
		return nil, errors.Wrap(err, "could not aggregate calendar activities")
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// SetActivityCalendarEventID stores the external calendar event id of a single activity
func (s *MongoDBOrderRepository) SetActivityCalendarEventID(ctx context.Context, orderID string, activityID string, calendarEventID string) error {
	orderObjectID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return err
	}

	_, err = s.DB.UpdateOne(ctx,
		bson.M{"_id": orderObjectID, "activities._id": activityID},
		bson.M{"$set": bson.M{
			"activities.$.calendarEventID": calendarEventID,
			"lastModifiedAt":               time.Now(),
		}})
	if err != nil {
		return errors.Wrap(err, "could not store calendar event id")
	}

	return nil
}

// Archive moves an order into the archive collection, copy then delete
func (s *MongoDBOrderRepository) Archive(ctx context.Context, orderID string) error {
	order, err := s.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	_, err = s.ArchiveDB.InsertOne(ctx, order)
	if err != nil {
		return errors.Wrap(err, "could not copy order into the archive")
	}

	err = s.Delete(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "could not remove archived order from the main collection")
	}

	return nil
}

// Delete deletes an order unrecoverable from the main collection
func (s *MongoDBOrderRepository) Delete(ctx context.Context, orderID string) error {
	orderObjectID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return err
	}

	order, err := s.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	_, err = s.DB.DeleteOne(ctx, bson.M{"_id": orderObjectID})
	if err != nil {
		return err
	}

	// Deleted activities must disappear from personal calendars as well
	for index := range order.Activities {
		order.Activities[index].InCalendar = false
	}

	s.Publish(&order)

	return nil
}

// Subscribe is useful for listening to order changes
func (s *MongoDBOrderRepository) Subscribe(o OrderObserver) {
	s.subscribers = append(s.subscribers, o)
}

// Unsubscribe unsubscribes from a subscription
func (s *MongoDBOrderRepository) Unsubscribe(o OrderObserver) {
	var index int
	for i, subscriber := range s.subscribers {
		if subscriber == o {
			index = i
			break
		}
	}

	s.subscribers = append(s.subscribers[:index], s.subscribers[index+1:]...)
}

// Publish publishes an order to all subscribers
func (s *MongoDBOrderRepository) Publish(order *Order) {
	for _, subscriber := range s.subscribers {
		go subscriber.OnNotify(order)
	}
}

func distinctResponsibles(activities []Activity) []string {
	seen := map[string]bool{}
	var responsibles []string

	for _, activity := range activities {
		if activity.Responsible == "" || seen[activity.Responsible] {
			continue
		}
		seen[activity.Responsible] = true
		responsibles = append(responsibles, activity.Responsible)
	}

	sort.Strings(responsibles)

	return responsibles
}
