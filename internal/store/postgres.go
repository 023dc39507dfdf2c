package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/models"
)

// PostgresStore handles PostgreSQL database operations. It expects the
// rooms, room_participants, users, messages and message_readers tables
// to exist; schema management is outside this core.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// orderExpr maps a normalized sort field to its ORDER BY expression.
// participantsCount orders by the true membership cardinality.
func orderExpr(field string) string {
	switch field {
	case SortByName:
		return "r.name"
	case SortByParticipantsCount:
		return "COUNT(p.user_id)"
	default:
		return "r.created_at"
	}
}

// FindRoomsPage retrieves one sorted page of rooms with their
// participant sets, plus the total count matching the filter.
func (s *PostgresStore) FindRoomsPage(ctx context.Context, q RoomPageQuery) ([]models.Room, int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM rooms
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
	`, q.Search).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if q.SortOrder == "desc" {
		dir = "DESC"
	}

	// q.SortField is normalized upstream; orderExpr maps unknown values
	// to created_at regardless.
	query := fmt.Sprintf(`
		SELECT r.id, r.name, r.creator, r.has_password,
		       COALESCE(r.password_hash, ''), r.created_at,
		       COALESCE(array_agg(p.user_id) FILTER (WHERE p.user_id IS NOT NULL), '{}')
		FROM rooms r
		LEFT JOIN room_participants p ON p.room_id = r.id
		WHERE ($1 = '' OR r.name ILIKE '%%' || $1 || '%%')
		GROUP BY r.id
		ORDER BY %s %s, r.id %s
		LIMIT $2 OFFSET $3
	`, orderExpr(q.SortField), dir, dir)

	rows, err := s.pool.Query(ctx, query, q.Search, q.PageSize, q.Page*q.PageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.Creator,
			&room.HasPassword,
			&room.Password,
			&room.CreatedAt,
			&room.ParticipantIDs,
		)
		if err != nil {
			return nil, 0, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

// FindRoomByID retrieves a room and its participant set by ID.
// Returns nil when absent.
func (s *PostgresStore) FindRoomByID(ctx context.Context, id string) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT r.id, r.name, r.creator, r.has_password,
		       COALESCE(r.password_hash, ''), r.created_at,
		       COALESCE(array_agg(p.user_id) FILTER (WHERE p.user_id IS NOT NULL), '{}')
		FROM rooms r
		LEFT JOIN room_participants p ON p.room_id = r.id
		WHERE r.id = $1
		GROUP BY r.id
	`, id).Scan(
		&room.ID,
		&room.Name,
		&room.Creator,
		&room.HasPassword,
		&room.Password,
		&room.CreatedAt,
		&room.ParticipantIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// MostRecentRoomCreatedAt returns the creation time of the newest room,
// or nil when no rooms exist.
func (s *PostgresStore) MostRecentRoomCreatedAt(ctx context.Context) (*time.Time, error) {
	var created time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT created_at FROM rooms ORDER BY created_at DESC LIMIT 1
	`).Scan(&created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &created, nil
}

// InsertRoom stores a new room and its initial participants in one
// transaction.
func (s *PostgresStore) InsertRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (id, name, creator, has_password, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, room.ID, room.Name, room.Creator, room.HasPassword, room.Password, room.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, userID := range room.ParticipantIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO room_participants (room_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, room.ID, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return room, nil
}

// SaveRoom updates the stored room fields. Participant membership is
// mutated only through AddParticipant. Idempotent.
func (s *PostgresStore) SaveRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE rooms
		SET name = $2, has_password = $3, password_hash = NULLIF($4, '')
		WHERE id = $1
	`, room.ID, room.Name, room.HasPassword, room.Password)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// AddParticipant inserts the membership row guarded by the primary key.
// Concurrent joins by the same user collapse into one row.
func (s *PostgresStore) AddParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roomID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key violation
			return false, models.ErrRoomNotFound
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindUsersByIDs retrieves all users in ids with one query. Unknown IDs
// are simply absent from the returned map.
func (s *PostgresStore) FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, COALESCE(profile_image, ''), created_at
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ProfileImage, &u.CreatedAt); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// FindUserByEmail retrieves a user by email. Returns nil when absent.
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(profile_image, ''), created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.ProfileImage, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountRecentMessages counts non-deleted messages per room since the
// given time, in one grouped query.
func (s *PostgresStore) CountRecentMessages(ctx context.Context, roomIDs []string, since time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT room_id, COUNT(*)
		FROM messages
		WHERE room_id = ANY($1) AND is_deleted = FALSE AND timestamp >= $2
		GROUP BY room_id
	`, roomIDs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roomID string
		var count int64
		if err := rows.Scan(&roomID, &count); err != nil {
			return nil, err
		}
		counts[roomID] = count
	}
	return counts, rows.Err()
}

// MarkMessagesRead inserts one reader row per listed message in a
// single statement; the (message_id, user_id) primary key makes
// re-application a no-op.
func (s *PostgresStore) MarkMessagesRead(ctx context.Context, messageIDs []string, reader models.MessageReader) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO message_readers (message_id, user_id, read_at)
		SELECT m.id, $2, $3
		FROM messages m
		WHERE m.id = ANY($1)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageIDs, reader.UserID, reader.ReadAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
