package operators

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"
)

// Role describes what an operator is allowed to do
type Role string

const (
	// RoleOperator is a regular shop floor operator
	RoleOperator Role = "operator"

	// RoleManager can take responsibility for orders
	RoleManager Role = "manager"

	// RoleAdmin administrates the whole application
	RoleAdmin Role = "admin"
)

// Valid reports whether the role belongs to the closed set
func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// DeviceToken is a firebase device token of a logged in device
type DeviceToken struct {
	Token          string    `json:"token" bson:"token"`
	LastRegistered time.Time `json:"lastRegistered" bson:"lastRegistered"`
}

// Operator is a person activities can be assigned to
type Operator struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Firstname      string             `json:"firstname" validate:"required"`
	Lastname       string             `json:"lastname" validate:"required"`
	Password       string             `json:"-" bson:"password" validate:"required"`
	Email          string             `json:"email" validate:"required,email"`
	Role           Role               `json:"role" bson:"role" validate:"required"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt" validate:"isdefault"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt" validate:"isdefault"`
	DeviceTokens   []DeviceToken      `json:"-" bson:"deviceTokens"`

	GoogleCalendarConnection GoogleCalendarConnection `json:"-" bson:"googleCalendarConnection,omitempty"`
}

// OperatorLogin is the payload for a login request
type OperatorLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" bson:"password" validate:"required"`
}

// GoogleCalendarConnection holds the oauth state for an operator's personal calendar
type GoogleCalendarConnection struct {
	Token      oauth2.Token
	StateToken string `json:"stateToken,omitempty" bson:"stateToken,omitempty"`
	CalendarID string `json:"calendarId,omitempty" bson:"calendarId,omitempty"`
}

// IsConnected reports whether the operator finished the oauth flow
func (c *GoogleCalendarConnection) IsConnected() bool {
	return c.Token.RefreshToken != ""
}
