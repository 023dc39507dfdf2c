package models

import "time"

// User represents a registered user. Users are owned by the identity
// subsystem; this core only ever reads them.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	ProfileImage string    `bson:"profileImage,omitempty" json:"profile_image,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
}
