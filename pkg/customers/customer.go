package customers

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is a client orders are produced for
type Customer struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	Email          string             `json:"email" bson:"email" validate:"omitempty,email"`
	Phone          string             `json:"phone" bson:"phone"`
	Address        string             `json:"address" bson:"address"`
	VatNumber      string             `json:"vatNumber" bson:"vatNumber"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt" validate:"isdefault"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt" validate:"isdefault"`
}
