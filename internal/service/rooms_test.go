package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/models"
)

// fakePublisher records every published event and can be forced to
// fail.
type fakePublisher struct {
	mu       sync.Mutex
	kinds    []string
	payloads []any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, kind string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.kinds = append(p.kinds, kind)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newTestService(t *testing.T, fs *fakeStore) (*RoomService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := NewRoomService(fs, pub, auth.BcryptHasher{Cost: bcrypt.MinCost}, zerolog.Nop())
	return svc, pub
}

func seedUsers(fs *fakeStore, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		fs.addUser(models.User{ID: id, Name: "User " + id, Email: id + "@example.com"})
		ids = append(ids, id)
	}
	return ids
}

func TestListRoomsSingleLookupPerListing(t *testing.T) {
	fs := newFakeStore()
	userIDs := seedUsers(fs, 5)

	// Heavy overlap across rooms: the same users appear everywhere.
	for i := 0; i < 8; i++ {
		fs.addRoom(models.Room{
			ID:             fmt.Sprintf("r%d", i),
			Name:           "room",
			Creator:        userIDs[i%len(userIDs)],
			ParticipantIDs: userIDs,
			CreatedAt:      time.Now(),
		})
	}

	svc, _ := newTestService(t, fs)
	list, err := svc.ListRooms(context.Background(), models.PageRequest{PageSize: 50}, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Rooms) != 8 {
		t.Fatalf("expected 8 rooms, got %d", len(list.Rooms))
	}

	if fs.findUsersCalls != 1 {
		t.Fatalf("expected exactly 1 bulk user lookup, got %d", fs.findUsersCalls)
	}
	if fs.countCalls != 1 {
		t.Fatalf("expected exactly 1 count aggregation, got %d", fs.countCalls)
	}
	if len(fs.lastUserIDs) != len(userIDs) {
		t.Fatalf("expected %d deduplicated ids, got %v", len(userIDs), fs.lastUserIDs)
	}
}

func TestListRoomsUnknownSortStillSucceeds(t *testing.T) {
	fs := newFakeStore()
	fs.addRoom(models.Room{ID: "r1", Name: "general", CreatedAt: time.Now()})

	svc, _ := newTestService(t, fs)
	list, err := svc.ListRooms(context.Background(), models.PageRequest{SortField: "bogus", SortOrder: "up"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if list.Meta.Sort.Field != "createdAt" || list.Meta.Sort.Order != "desc" {
		t.Fatalf("expected normalized createdAt/desc, got %+v", list.Meta.Sort)
	}
}

func TestListRoomsDegradesOnFailedEnrichment(t *testing.T) {
	fs := newFakeStore()
	seedUsers(fs, 2)
	fs.addRoom(models.Room{ID: "r1", Name: "general", Creator: "a", ParticipantIDs: []string{"a", "b"}, CreatedAt: time.Now()})
	fs.failUsers = true
	fs.failCounts = true

	svc, _ := newTestService(t, fs)
	list, err := svc.ListRooms(context.Background(), models.PageRequest{}, "a@example.com")
	if err != nil {
		t.Fatalf("degraded enrichment must not fail the listing: %v", err)
	}
	if len(list.Rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(list.Rooms))
	}

	view := list.Rooms[0]
	if view.Creator == nil || view.Creator.Name != "Unknown" {
		t.Fatalf("expected Unknown placeholder creator, got %+v", view.Creator)
	}
	if len(view.Participants) != 0 {
		t.Fatalf("expected no resolved participants, got %+v", view.Participants)
	}
	if view.RecentMessageCount != 0 {
		t.Fatalf("expected zero count, got %d", view.RecentMessageCount)
	}
}

func TestListRoomsPrimaryQueryFailure(t *testing.T) {
	fs := newFakeStore()
	fs.failPage = true

	svc, _ := newTestService(t, fs)
	list, err := svc.ListRooms(context.Background(), models.PageRequest{}, "")
	if err == nil {
		t.Fatal("expected error when the room page query fails")
	}
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(list.Rooms) != 0 {
		t.Fatalf("expected empty result set, got %d rooms", len(list.Rooms))
	}
	if fs.findUsersCalls != 0 || fs.countCalls != 0 {
		t.Fatal("no enrichment lookups should run after a failed page query")
	}
}

func TestListRoomsPageMetadata(t *testing.T) {
	fs := newFakeStore()
	for i := 0; i < 25; i++ {
		fs.addRoom(models.Room{ID: fmt.Sprintf("r%d", i), Name: "room", CreatedAt: time.Now()})
	}

	svc, _ := newTestService(t, fs)
	list, err := svc.ListRooms(context.Background(), models.PageRequest{Page: 1, PageSize: 10}, "")
	if err != nil {
		t.Fatal(err)
	}

	meta := list.Meta
	if meta.Total != 25 || meta.TotalPages != 3 {
		t.Fatalf("expected total 25 over 3 pages, got %d/%d", meta.Total, meta.TotalPages)
	}
	if !meta.HasMore {
		t.Fatal("page 1 of 3 must report more pages")
	}
	if meta.CurrentCount != 10 || len(list.Rooms) != 10 {
		t.Fatalf("expected 10 rooms on page 1, got %d", len(list.Rooms))
	}

	last, err := svc.ListRooms(context.Background(), models.PageRequest{Page: 2, PageSize: 10}, "")
	if err != nil {
		t.Fatal(err)
	}
	if last.Meta.HasMore {
		t.Fatal("final page must not report more pages")
	}
	if last.Meta.CurrentCount != 5 {
		t.Fatalf("expected 5 rooms on the final page, got %d", last.Meta.CurrentCount)
	}
}

func TestListRoomsRecentWindow(t *testing.T) {
	fs := newFakeStore()
	seedUsers(fs, 2)
	fs.addRoom(models.Room{ID: "r1", Name: "general", Creator: "a", ParticipantIDs: []string{"a", "b"}, CreatedAt: time.Now()})

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	fs.addMessage(models.Message{ID: models.NewMessageID(), RoomID: "r1", Timestamp: now.Add(-5 * time.Minute)})
	fs.addMessage(models.Message{ID: models.NewMessageID(), RoomID: "r1", Timestamp: now.Add(-15 * time.Minute)})
	fs.addMessage(models.Message{ID: models.NewMessageID(), RoomID: "r1", Timestamp: now.Add(-2 * time.Minute), IsDeleted: true})

	svc, _ := newTestService(t, fs)
	svc.now = func() time.Time { return now }

	list, err := svc.ListRooms(context.Background(), models.PageRequest{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := list.Rooms[0].RecentMessageCount; got != 1 {
		t.Fatalf("expected 1 message inside the window, got %d", got)
	}
	if want := now.Add(-10 * time.Minute); !fs.lastSince.Equal(want) {
		t.Fatalf("expected since %v, got %v", want, fs.lastSince)
	}
}

func TestCreateRoom(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	svc, pub := newTestService(t, fs)
	room, err := svc.CreateRoom(context.Background(), CreateRoomRequest{Name: "  general  "}, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if room.ID == "" {
		t.Fatal("expected a generated room id")
	}
	if room.Name != "general" {
		t.Fatalf("expected trimmed name, got %q", room.Name)
	}
	if room.Creator != "u1" {
		t.Fatalf("expected creator u1, got %s", room.Creator)
	}
	if len(room.ParticipantIDs) != 1 || room.ParticipantIDs[0] != "u1" {
		t.Fatalf("creator must be the sole participant, got %v", room.ParticipantIDs)
	}
	if room.HasPassword {
		t.Fatal("no password was supplied")
	}

	if len(pub.kinds) != 1 || pub.kinds[0] != "roomCreated" {
		t.Fatalf("expected one roomCreated event, got %v", pub.kinds)
	}
}

func TestCreateRoomWithPassword(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	svc, _ := newTestService(t, fs)
	room, err := svc.CreateRoom(context.Background(), CreateRoomRequest{Name: "vault", Password: "hunter2"}, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if !room.HasPassword {
		t.Fatal("expected HasPassword")
	}
	if room.Password == "hunter2" {
		t.Fatal("password must be stored hashed")
	}
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	if !hasher.Verify("hunter2", room.Password) {
		t.Fatal("stored hash must verify against the plaintext")
	}
}

func TestCreateRoomUnknownActor(t *testing.T) {
	fs := newFakeStore()
	svc, pub := newTestService(t, fs)

	_, err := svc.CreateRoom(context.Background(), CreateRoomRequest{Name: "general"}, "nobody@example.com")
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(pub.kinds) != 0 {
		t.Fatal("no event should publish for a failed create")
	}
}

func TestCreateRoomPublishFailureSwallowed(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	svc, pub := newTestService(t, fs)
	pub.err = errors.New("broker down")

	room, err := svc.CreateRoom(context.Background(), CreateRoomRequest{Name: "general"}, "ada@example.com")
	if err != nil {
		t.Fatalf("publish failure must not fail the create: %v", err)
	}
	if room == nil || room.ID == "" {
		t.Fatal("room must still be persisted")
	}
}

func joinFixture(t *testing.T) (*fakeStore, *RoomService, *fakePublisher) {
	t.Helper()
	fs := newFakeStore()
	fs.addUser(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	fs.addUser(models.User{ID: "u2", Name: "Ben", Email: "ben@example.com"})
	fs.addRoom(models.Room{ID: "r1", Name: "general", Creator: "u1", ParticipantIDs: []string{"u1"}, CreatedAt: time.Now()})
	svc, pub := newTestService(t, fs)
	return fs, svc, pub
}

func TestJoinRoom(t *testing.T) {
	fs, svc, pub := joinFixture(t)

	room, err := svc.JoinRoom(context.Background(), "r1", "", "ben@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !room.HasParticipant("u2") {
		t.Fatalf("expected u2 in participants, got %v", room.ParticipantIDs)
	}

	stored, _ := fs.FindRoomByID(context.Background(), "r1")
	if len(stored.ParticipantIDs) != 2 {
		t.Fatalf("expected 2 stored participants, got %v", stored.ParticipantIDs)
	}
	if len(pub.kinds) != 1 || pub.kinds[0] != "roomUpdated" {
		t.Fatalf("expected one roomUpdated event, got %v", pub.kinds)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	fs, svc, _ := joinFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.JoinRoom(context.Background(), "r1", "", "ben@example.com"); err != nil {
			t.Fatal(err)
		}
	}

	stored, _ := fs.FindRoomByID(context.Background(), "r1")
	seen := 0
	for _, id := range stored.ParticipantIDs {
		if id == "u2" {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one u2 entry, got %v", stored.ParticipantIDs)
	}
}

func TestJoinRoomConcurrent(t *testing.T) {
	fs, svc, _ := joinFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.JoinRoom(context.Background(), "r1", "", "ben@example.com"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stored, _ := fs.FindRoomByID(context.Background(), "r1")
	if len(stored.ParticipantIDs) != 2 {
		t.Fatalf("concurrent joins must collapse to one entry, got %v", stored.ParticipantIDs)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	_, svc, pub := joinFixture(t)

	_, err := svc.JoinRoom(context.Background(), "missing", "", "ben@example.com")
	if !errors.Is(err, models.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if len(pub.kinds) != 0 {
		t.Fatal("no event should publish for a failed join")
	}
}

func TestJoinRoomWrongPassword(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(models.User{ID: "u2", Name: "Ben", Email: "ben@example.com"})

	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("secret")
	if err != nil {
		t.Fatal(err)
	}
	fs.addRoom(models.Room{ID: "r1", Name: "vault", Creator: "u1", ParticipantIDs: []string{"u1"}, HasPassword: true, Password: hash})

	svc, pub := newTestService(t, fs)

	for _, attempt := range []string{"", "wrong"} {
		_, err := svc.JoinRoom(context.Background(), "r1", attempt, "ben@example.com")
		if !errors.Is(err, models.ErrWrongPassword) {
			t.Fatalf("attempt %q: expected ErrWrongPassword, got %v", attempt, err)
		}
	}

	stored, _ := fs.FindRoomByID(context.Background(), "r1")
	if stored.HasParticipant("u2") {
		t.Fatal("a denied join must not add the user")
	}
	if len(pub.kinds) != 0 {
		t.Fatal("no event should publish for a denied join")
	}

	room, err := svc.JoinRoom(context.Background(), "r1", "secret", "ben@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !room.HasParticipant("u2") {
		t.Fatal("correct password must admit the user")
	}
}
