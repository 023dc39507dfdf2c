package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore is an in-memory DataStore that records every round trip so
// tests can assert the batching and idempotence invariants.
type fakeStore struct {
	mu sync.Mutex

	rooms     map[string]*models.Room
	roomOrder []string
	users     map[string]models.User
	messages  map[string]*models.Message

	nextID int

	findRoomsPageCalls int
	findUsersCalls     int
	countCalls         int
	markReadCalls      int

	lastUserIDs []string
	lastSince   time.Time

	failPage     bool
	failUsers    bool
	failCounts   bool
	failMarkRead bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]*models.Room),
		users:    make(map[string]models.User),
		messages: make(map[string]*models.Message),
	}
}

func (f *fakeStore) addUser(u models.User) {
	f.users[u.ID] = u
}

func (f *fakeStore) addRoom(r models.Room) {
	room := r
	f.rooms[room.ID] = &room
	f.roomOrder = append(f.roomOrder, room.ID)
}

func (f *fakeStore) addMessage(m models.Message) {
	msg := m
	f.messages[msg.ID] = &msg
}

func (f *fakeStore) Close() {}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) MostRecentRoomCreatedAt(context.Context) (*time.Time, error) {
	return nil, nil
}

func (f *fakeStore) FindRoomsPage(_ context.Context, q store.RoomPageQuery) ([]models.Room, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findRoomsPageCalls++
	if f.failPage {
		return nil, 0, errStoreDown
	}

	var rooms []models.Room
	for _, id := range f.roomOrder {
		rooms = append(rooms, *f.rooms[id])
	}
	total := int64(len(rooms))

	start := q.Page * q.PageSize
	if start > len(rooms) {
		return nil, total, nil
	}
	end := start + q.PageSize
	if end > len(rooms) {
		end = len(rooms)
	}
	return rooms[start:end], total, nil
}

func (f *fakeStore) FindRoomByID(_ context.Context, id string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *room
	cp.ParticipantIDs = append([]string(nil), room.ParticipantIDs...)
	return &cp, nil
}

func (f *fakeStore) InsertRoom(_ context.Context, room *models.Room) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == "" {
		f.nextID++
		room.ID = fmt.Sprintf("room-%d", f.nextID)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	cp := *room
	f.rooms[cp.ID] = &cp
	f.roomOrder = append(f.roomOrder, cp.ID)
	return room, nil
}

func (f *fakeStore) SaveRoom(_ context.Context, room *models.Room) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *room
	f.rooms[cp.ID] = &cp
	return room, nil
}

func (f *fakeStore) AddParticipant(_ context.Context, roomID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return false, models.ErrRoomNotFound
	}
	for _, id := range room.ParticipantIDs {
		if id == userID {
			return false, nil
		}
	}
	room.ParticipantIDs = append(room.ParticipantIDs, userID)
	return true, nil
}

func (f *fakeStore) FindUsersByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findUsersCalls++
	f.lastUserIDs = append([]string(nil), ids...)
	if f.failUsers {
		return nil, errStoreDown
	}

	found := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			found[id] = u
		}
	}
	return found, nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountRecentMessages(_ context.Context, roomIDs []string, since time.Time) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	f.lastSince = since
	if f.failCounts {
		return nil, errStoreDown
	}

	inPage := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		inPage[id] = true
	}

	counts := make(map[string]int64)
	for _, msg := range f.messages {
		if msg.IsDeleted || !inPage[msg.RoomID] || msg.Timestamp.Before(since) {
			continue
		}
		counts[msg.RoomID]++
	}
	return counts, nil
}

func (f *fakeStore) MarkMessagesRead(_ context.Context, messageIDs []string, reader models.MessageReader) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls++
	if f.failMarkRead {
		return 0, errStoreDown
	}

	var modified int64
	for _, id := range messageIDs {
		msg, ok := f.messages[id]
		if !ok {
			continue
		}
		already := false
		for _, r := range msg.Readers {
			if r.UserID == reader.UserID {
				already = true
				break
			}
		}
		if !already {
			msg.Readers = append(msg.Readers, reader)
			modified++
		}
	}
	return modified, nil
}
