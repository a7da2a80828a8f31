package customers

import (
	"context"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CustomerRepositoryInterface is the interface for a CustomerRepository
type CustomerRepositoryInterface interface {
	Add(ctx context.Context, customer *Customer) error
	FindAll(ctx context.Context) ([]*Customer, error)
	FindByID(ctx context.Context, id string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	Remove(ctx context.Context, id string) error
}

// CustomerRepository does everything related to customer storing
type CustomerRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// Add adds a customer
func (s CustomerRepository) Add(ctx context.Context, customer *Customer) error {
	customer.CreatedAt = time.Now()
	customer.LastModifiedAt = time.Now()
	customer.ID = primitive.NewObjectID()
	_, err := s.DB.InsertOne(ctx, customer)
	return err
}

// FindAll returns all customers sorted by name
func (s CustomerRepository) FindAll(ctx context.Context) ([]*Customer, error) {
	var customers []*Customer

	findOptions := options.Find()
	findOptions.SetSort(bson.M{"name": 1})

	cursor, err := s.DB.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &customers)
	if err != nil {
		return nil, err
	}

	return customers, nil
}

// FindByID finds a customer by ID
func (s CustomerRepository) FindByID(ctx context.Context, id string) (*Customer, error) {
	var c = Customer{}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update updates a customer
func (s CustomerRepository) Update(ctx context.Context, customer *Customer) error {
	customer.LastModifiedAt = time.Now()

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": customer.ID}, bson.M{"$set": customer})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// Remove deletes a customer
func (s CustomerRepository) Remove(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = s.DB.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}
