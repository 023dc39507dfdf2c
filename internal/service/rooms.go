package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/events"
	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// DefaultRecentWindow is the trailing look-back used for per-room
// activity counts.
const DefaultRecentWindow = 10 * time.Minute

// RoomService implements room listing and lifecycle operations on top
// of a DataStore. It holds no mutable state of its own; concurrent
// calls are fully independent.
type RoomService struct {
	store     store.DataStore
	publisher events.Publisher
	hasher    auth.PasswordHasher
	log       zerolog.Logger

	window time.Duration
	now    func() time.Time
}

// NewRoomService wires a RoomService with the default trailing window.
func NewRoomService(st store.DataStore, pub events.Publisher, hasher auth.PasswordHasher, logger zerolog.Logger) *RoomService {
	return &RoomService{
		store:     st,
		publisher: pub,
		hasher:    hasher,
		log:       logger,
		window:    DefaultRecentWindow,
		now:       time.Now,
	}
}

// SetRecentWindow overrides the activity-count look-back.
func (s *RoomService) SetRecentWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// CreateRoomRequest carries the room-creation parameters.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

// ListRooms returns one enriched, sorted page of rooms. Identity and
// count enrichment each take exactly one store round trip regardless of
// page size; their failure degrades the result instead of failing it.
// Only a failure of the room page query itself is returned as an error.
func (s *RoomService) ListRooms(ctx context.Context, req models.PageRequest, actorEmail string) (*models.RoomList, error) {
	start := time.Now()
	q := ResolvePage(req)

	rooms, total, err := s.store.FindRoomsPage(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Str("sort", q.SortField).Int("page", q.Page).Msg("room page query failed")
		return &models.RoomList{Rooms: []models.RoomView{}}, fmt.Errorf("find rooms page: %w", err)
	}

	users := s.userMap(ctx, collectUserIDs(rooms))
	counts := s.recentCounts(ctx, roomIDs(rooms))
	views := assembleRoomViews(rooms, actorEmail, users, counts)

	totalPages := total / int64(q.PageSize)
	if total%int64(q.PageSize) != 0 {
		totalPages++
	}

	metrics.RoomListings.Inc()
	metrics.RoomListingDuration.Observe(time.Since(start).Seconds())
	s.log.Debug().
		Int("rooms", len(views)).
		Int("users", len(users)).
		Int("counts", len(counts)).
		Dur("took", time.Since(start)).
		Msg("rooms listed")

	return &models.RoomList{
		Rooms: views,
		Meta: models.PageMetadata{
			Total:        total,
			Page:         q.Page,
			PageSize:     q.PageSize,
			TotalPages:   totalPages,
			HasMore:      int64(q.Page+1)*int64(q.PageSize) < total,
			CurrentCount: len(views),
			Sort:         models.SortInfo{Field: q.SortField, Order: q.SortOrder},
		},
	}, nil
}

// CreateRoom persists a new room with the acting user as sole creator
// and participant, then publishes a best-effort roomCreated event built
// from the single-room assembly path.
func (s *RoomService) CreateRoom(ctx context.Context, req CreateRoomRequest, actorEmail string) (*models.Room, error) {
	user, err := s.store.FindUserByEmail(ctx, actorEmail)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", actorEmail, err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	room := &models.Room{
		Name:           strings.TrimSpace(req.Name),
		Creator:        user.ID,
		ParticipantIDs: []string{user.ID},
	}

	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		room.HasPassword = true
		room.Password = hash
	}

	saved, err := s.store.InsertRoom(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	metrics.RoomsCreated.Inc()
	s.log.Info().Str("room", saved.ID).Str("creator", user.ID).Bool("protected", saved.HasPassword).Msg("room created")

	// Event payload reuses the bulk-load path with just the creator;
	// the fresh room has no messages to count.
	users := s.userMap(ctx, []string{user.ID})
	s.publishRoomEvent(ctx, events.RoomCreated, saved, actorEmail, users, map[string]int64{})

	return saved, nil
}

// JoinRoom adds the acting user to a room. A missing room is reported
// as ErrRoomNotFound, a failed password check as ErrWrongPassword. The
// membership write is a single atomic conditional add, so concurrent
// joins by the same user collapse to one entry.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, password, actorEmail string) (*models.Room, error) {
	room, err := s.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("find room %s: %w", roomID, err)
	}
	if room == nil {
		metrics.RoomJoins.WithLabelValues("not_found").Inc()
		return nil, models.ErrRoomNotFound
	}

	user, err := s.store.FindUserByEmail(ctx, actorEmail)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", actorEmail, err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	if room.HasPassword {
		if password == "" || !s.hasher.Verify(password, room.Password) {
			metrics.RoomJoins.WithLabelValues("denied").Inc()
			s.log.Warn().Str("room", room.ID).Str("user", user.ID).Msg("join rejected: wrong password")
			return nil, models.ErrWrongPassword
		}
	}

	if room.HasParticipant(user.ID) {
		metrics.RoomJoins.WithLabelValues("already_member").Inc()
	} else {
		added, err := s.store.AddParticipant(ctx, room.ID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("add participant: %w", err)
		}
		if added {
			room.ParticipantIDs = append(room.ParticipantIDs, user.ID)
			metrics.RoomJoins.WithLabelValues("joined").Inc()
			s.log.Info().Str("room", room.ID).Str("user", user.ID).Msg("user joined room")
		} else {
			// Lost the race against a concurrent join by the same user.
			metrics.RoomJoins.WithLabelValues("already_member").Inc()
		}
	}

	users := s.userMap(ctx, collectUserIDs([]models.Room{*room}))
	counts := s.recentCounts(ctx, []string{room.ID})
	s.publishRoomEvent(ctx, events.RoomUpdated, room, actorEmail, users, counts)

	return room, nil
}

// publishRoomEvent assembles the event payload through the same join
// path as a listing and publishes it fire-and-forget. Failures are
// logged and discarded; the primary operation already succeeded.
func (s *RoomService) publishRoomEvent(ctx context.Context, kind string, room *models.Room, actorEmail string, users map[string]models.User, counts map[string]int64) {
	view := assembleRoomView(*room, actorEmail, users, counts)
	if err := s.publisher.Publish(ctx, kind, events.RoomEvent{RoomID: room.ID, Room: view}); err != nil {
		metrics.EventPublishFailures.WithLabelValues(kind).Inc()
		s.log.Error().Err(err).Str("kind", kind).Str("room", room.ID).Msg("event publish failed")
	}
}
