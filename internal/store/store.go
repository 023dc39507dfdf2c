package store

import (
	"context"
	"time"

	"github.com/parley-chat/parley/internal/models"
)

// Sort fields accepted by FindRoomsPage. The service layer guarantees
// only these values reach a store.
const (
	SortByName              = "name"
	SortByCreatedAt         = "createdAt"
	SortByParticipantsCount = "participantsCount"
)

// RoomPageQuery describes one page of the room listing. Page is
// zero-based; Search, when non-empty, is a case-insensitive name
// substring filter.
type RoomPageQuery struct {
	SortField string
	SortOrder string // "asc" or "desc"
	Page      int
	PageSize  int
	Search    string
}

// DataStore is the persistence port for the room-listing and
// read-receipt core. MongoStore and PostgresStore both implement it;
// the services depend only on this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room queries
	FindRoomsPage(ctx context.Context, q RoomPageQuery) ([]models.Room, int64, error)
	FindRoomByID(ctx context.Context, id string) (*models.Room, error)
	MostRecentRoomCreatedAt(ctx context.Context) (*time.Time, error)

	// Room mutations
	InsertRoom(ctx context.Context, room *models.Room) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) (*models.Room, error)
	// AddParticipant appends userID to the room's participant set as a
	// single atomic conditional operation. Returns false when the user
	// was already a member (no write performed).
	AddParticipant(ctx context.Context, roomID, userID string) (bool, error)

	// Bulk lookups (at most one round trip each)
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountRecentMessages(ctx context.Context, roomIDs []string, since time.Time) (map[string]int64, error)

	// MarkMessagesRead records reader on every message in messageIDs
	// that does not already carry a reader entry for reader.UserID, in
	// one multi-document update. Returns the number of modified
	// messages.
	MarkMessagesRead(ctx context.Context, messageIDs []string, reader models.MessageReader) (int64, error)
}
