package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Message represents a chat message document. This core only touches
// messages through the read-receipt bulk update and the grouped
// recent-count aggregation; it never creates or deletes them.
type Message struct {
	ID        string          `bson:"_id,omitempty" json:"id"` // ULID
	RoomID    string          `bson:"room" json:"room_id"`
	Timestamp time.Time       `bson:"timestamp" json:"ts"`
	IsDeleted bool            `bson:"isDeleted" json:"is_deleted"`
	Readers   []MessageReader `bson:"readers,omitempty" json:"readers,omitempty"`
}

// MessageReader records that a user has read a message.
// Readers are deduplicated per userId by the store-level guard.
type MessageReader struct {
	UserID string    `bson:"userId" json:"user_id"`
	ReadAt time.Time `bson:"readAt" json:"read_at"`
}

// NewMessageID returns a fresh ULID message identifier.
func NewMessageID() string {
	return ulid.Make().String()
}
