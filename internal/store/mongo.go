package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/parley-chat/parley/internal/models"
)

// MongoStore handles MongoDB operations for rooms, users and messages.
type MongoStore struct {
	client   *mongo.Client
	rooms    *mongo.Collection
	users    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore creates a new MongoDB store and verifies connectivity.
func NewMongoStore(ctx context.Context, mongoURL, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		rooms:    db.Collection("rooms"),
		users:    db.Collection("users"),
		messages: db.Collection("messages"),
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Ping checks the MongoDB connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// FindRoomsPage retrieves one sorted page of rooms plus the total count
// matching the filter. Sorting by participantsCount is computed from
// the actual set cardinality via an aggregation stage.
func (s *MongoStore) FindRoomsPage(ctx context.Context, q RoomPageQuery) ([]models.Room, int64, error) {
	filter := bson.M{}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}

	total, err := s.rooms.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := 1
	if q.SortOrder == "desc" {
		order = -1
	}
	skip := int64(q.Page) * int64(q.PageSize)

	var cur *mongo.Cursor
	if q.SortField == SortByParticipantsCount {
		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: filter}},
			{{Key: "$addFields", Value: bson.M{
				"participantsCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
			}}},
			// _id as tie-breaker keeps pages stable
			{{Key: "$sort", Value: bson.D{{Key: "participantsCount", Value: order}, {Key: "_id", Value: order}}}},
			{{Key: "$skip", Value: skip}},
			{{Key: "$limit", Value: int64(q.PageSize)}},
		}
		cur, err = s.rooms.Aggregate(ctx, pipeline)
	} else {
		opts := options.Find().
			SetSort(bson.D{{Key: q.SortField, Value: order}, {Key: "_id", Value: order}}).
			SetSkip(skip).
			SetLimit(int64(q.PageSize))
		cur, err = s.rooms.Find(ctx, filter, opts)
	}
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rooms []models.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// FindRoomByID retrieves a room by ID. Returns nil when absent.
func (s *MongoStore) FindRoomByID(ctx context.Context, id string) (*models.Room, error) {
	room := &models.Room{}
	err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// MostRecentRoomCreatedAt returns the creation time of the newest room,
// or nil when no rooms exist.
func (s *MongoStore) MostRecentRoomCreatedAt(ctx context.Context) (*time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"createdAt": 1})

	var doc struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	err := s.rooms.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc.CreatedAt, nil
}

// InsertRoom stores a new room, generating an ID and creation time if
// unset.
func (s *MongoStore) InsertRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	if room.ID == "" {
		room.ID = primitive.NewObjectID().Hex()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	if _, err := s.rooms.InsertOne(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// SaveRoom replaces the stored room document. Idempotent.
func (s *MongoStore) SaveRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	_, err := s.rooms.ReplaceOne(ctx, bson.M{"_id": room.ID}, room)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// AddParticipant adds userID to the room's participant set via a single
// $addToSet update. Concurrent calls for the same user cannot produce
// duplicate entries.
func (s *MongoStore) AddParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$addToSet": bson.M{"participants": userID}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, models.ErrRoomNotFound
	}
	return res.ModifiedCount > 0, nil
}

// FindUsersByIDs retrieves all users in ids with one $in query.
// Unknown IDs are simply absent from the returned map.
func (s *MongoStore) FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, cur.Err()
}

// FindUserByEmail retrieves a user by email. Returns nil when absent.
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountRecentMessages counts non-deleted messages per room since the
// given time, in one grouped aggregation. Rooms without matching
// messages are absent from the result.
func (s *MongoStore) CountRecentMessages(ctx context.Context, roomIDs []string, since time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"room":      bson.M{"$in": roomIDs},
			"isDeleted": false,
			"timestamp": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$room",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			RoomID string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.RoomID] = row.Count
	}
	return counts, cur.Err()
}

// MarkMessagesRead adds reader to every listed message that does not
// already record this user, in one UpdateMany. The readers.userId guard
// plus $addToSet makes repeated application a structural no-op.
func (s *MongoStore) MarkMessagesRead(ctx context.Context, messageIDs []string, reader models.MessageReader) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	res, err := s.messages.UpdateMany(ctx,
		bson.M{
			"_id":            bson.M{"$in": messageIDs},
			"readers.userId": bson.M{"$ne": reader.UserID},
		},
		bson.M{"$addToSet": bson.M{"readers": reader}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
