package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in MongoDB. Accounts are created and
// verified by the auth API; this service only flips the presence fields
// and reads the rest.
type User struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Fullname       string             `json:"fullname" bson:"fullname"`
	Username       string             `json:"username" bson:"username"`
	Email          string             `json:"email" bson:"email"`
	ProfilePicture string             `json:"profilePicture" bson:"profile_picture"`
	IsVerified     bool               `json:"isVerified" bson:"is_verified"`
	IsOnline       bool               `json:"isOnline" bson:"is_online"`
	SocketID       string             `json:"-" bson:"socket_id,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updated_at"`
}

// UserProfile is the public projection returned by the profile and search
// endpoints.
type UserProfile struct {
	ID             string `json:"_id"`
	Fullname       string `json:"fullname"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	IsOnline       bool   `json:"isOnline"`
}
