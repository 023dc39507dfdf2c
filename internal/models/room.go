package models

import "time"

// Room represents a chat room document.
// The creator is always present in ParticipantIDs; membership is unique
// and insertion order carries no meaning.
type Room struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	Name           string    `bson:"name" json:"name"`
	Creator        string    `bson:"creator" json:"creator"`
	ParticipantIDs []string  `bson:"participants" json:"participants"`
	HasPassword    bool      `bson:"hasPassword" json:"has_password"`
	Password       string    `bson:"password,omitempty" json:"-"` // bcrypt hash, never serialized
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
}

// HasParticipant reports whether userID is already a member.
func (r *Room) HasParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
