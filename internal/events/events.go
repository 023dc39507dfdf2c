package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/models"
)

// Event kinds published by the room lifecycle operations.
const (
	RoomCreated = "roomCreated"
	RoomUpdated = "roomUpdated"
)

// Publisher is the fire-and-forget event handle injected into the room
// lifecycle service. Implementations must not block on downstream
// consumers; callers catch and log every error.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) error
	Close() error
}

// Envelope wraps an event payload on the wire.
type Envelope struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"ts"` // Unix ms
	Payload   any    `json:"payload"`
}

// NewEnvelope builds a wire envelope with a fresh event ID.
func NewEnvelope(kind string, payload any) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// RoomEvent is the payload for roomCreated and roomUpdated events.
type RoomEvent struct {
	RoomID string          `json:"room_id"`
	Room   models.RoomView `json:"room"`
}

// NopPublisher discards all events. Used when no event transport is
// configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
