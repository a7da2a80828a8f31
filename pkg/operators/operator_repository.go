package operators

import (
	"context"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OperatorRepositoryInterface is the interface for an OperatorRepository
type OperatorRepositoryInterface interface {
	Add(ctx context.Context, operator *Operator) error
	FindAll(ctx context.Context) ([]*Operator, error)
	FindByID(ctx context.Context, id string) (*Operator, error)
	FindByEmail(ctx context.Context, email string) (*Operator, error)
	FindByGoogleStateToken(ctx context.Context, stateToken string) (*Operator, error)
	Update(ctx context.Context, operator *Operator) error
	Remove(ctx context.Context, id string) error
}

// OperatorRepository does everything related to operator storing
type OperatorRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// Add adds an operator
func (s OperatorRepository) Add(ctx context.Context, operator *Operator) error {
	operator.CreatedAt = time.Now()
	operator.LastModifiedAt = time.Now()
	operator.ID = primitive.NewObjectID()
	_, err := s.DB.InsertOne(ctx, operator)
	return err
}

// FindAll returns all operators sorted by lastname
func (s OperatorRepository) FindAll(ctx context.Context) ([]*Operator, error) {
	var operators []*Operator

	findOptions := options.Find()
	findOptions.SetSort(bson.M{"lastname": 1})

	cursor, err := s.DB.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &operators)
	if err != nil {
		return nil, err
	}

	return operators, nil
}

// FindByID finds an operator by ID
func (s OperatorRepository) FindByID(ctx context.Context, id string) (*Operator, error) {
	var o = Operator{}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByEmail finds an operator by Email
func (s OperatorRepository) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	var o = Operator{}

	result := s.DB.FindOne(ctx, bson.M{"email": email})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByGoogleStateToken finds an operator by its Google state token
func (s OperatorRepository) FindByGoogleStateToken(ctx context.Context, stateToken string) (*Operator, error) {
	var o = Operator{}

	result := s.DB.FindOne(ctx, bson.M{"googleCalendarConnection.stateToken": stateToken})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Update updates an operator
func (s OperatorRepository) Update(ctx context.Context, operator *Operator) error {
	operator.LastModifiedAt = time.Now()

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": operator.ID}, bson.M{"$set": operator})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

// Remove deletes an operator
func (s OperatorRepository) Remove(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = s.DB.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}
