package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fathima-sithara/chat-relay/internal/models"
)

var ErrNotFound = errors.New("not found")

// Collection names match the existing deployment so stored data stays
// readable across the migration.
const (
	chatRoomsColl        = "ChatRooms"
	chatMessagesColl     = "ChatMessages"
	togetherRoomsColl    = "TogetherChatRooms"
	togetherMessagesColl = "TogetherMessages"
	countersColl         = "Counters"
)

// Store is the persistence contract the service layer depends on.
type Store interface {
	AppendMessage(ctx context.Context, topo models.Topology, m *models.Message) error
	ListByRoom(ctx context.Context, topo models.Topology, roomID int64) ([]models.Message, error)
	ListRoomsJoined(ctx context.Context, topo models.Topology) ([]models.RoomView, error)
	MarkRoomRead(ctx context.Context, topo models.Topology, roomID int64) (int64, error)
	Ping(ctx context.Context) error
}

// topoSpec selects the collection and join-key names for one topology.
type topoSpec struct {
	rooms    string
	messages string
	roomKey  string
}

func specFor(topo models.Topology) topoSpec {
	if topo == models.Group {
		return topoSpec{rooms: togetherRoomsColl, messages: togetherMessagesColl, roomKey: "group_room_id"}
	}
	return topoSpec{rooms: chatRoomsColl, messages: chatMessagesColl, roomKey: "chat_room_id"}
}

type mongoStore struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

// nextSeq reserves the next per-room sequence number. The counter document
// is keyed by topology and room so the two id namespaces never collide.
func (s *mongoStore) nextSeq(ctx context.Context, topo models.Topology, roomID int64) (int64, error) {
	key := fmt.Sprintf("%s:%d", topo, roomID)
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection(countersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

func (s *mongoStore) AppendMessage(ctx context.Context, topo models.Topology, m *models.Message) error {
	seq, err := s.nextSeq(ctx, topo, m.RoomID())
	if err != nil {
		return err
	}
	m.Seq = seq
	m.Read = false

	spec := specFor(topo)
	doc := bson.M{
		spec.roomKey: m.RoomID(),
		"sender_id":  m.SenderID,
		"message":    m.Body,
		"write_day":  m.WriteDay,
		"seq":        m.Seq,
		"read":       false,
	}
	res, err := s.db.Collection(spec.messages).InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (s *mongoStore) ListByRoom(ctx context.Context, topo models.Topology, roomID int64) ([]models.Message, error) {
	spec := specFor(topo)
	cur, err := s.db.Collection(spec.messages).Find(ctx,
		bson.M{spec.roomKey: roomID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// ListRoomsJoined left-joins every room of the topology against its
// messages and projects each message to the client view shape. Rooms with
// no messages come back with an empty messages array.
func (s *mongoStore) ListRoomsJoined(ctx context.Context, topo models.Topology) ([]models.RoomView, error) {
	spec := specFor(topo)

	project := bson.M{
		"_id":    0,
		"roomId": "$id",
		"messages": bson.M{
			"$map": bson.M{
				"input": "$messages",
				"as":    "message",
				"in": bson.M{
					"senderId": "$$message.sender_id",
					"message":  "$$message.message",
					"writeDay": "$$message.write_day",
					"read":     "$$message.read",
				},
			},
		},
	}
	if topo == models.Group {
		project["together_id"] = 1
		project["members"] = 1
	} else {
		project["member1"] = 1
		project["member2"] = 1
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": spec.messages,
			"let":  bson.M{"room_id": "$id"},
			"pipeline": mongo.Pipeline{
				bson.D{{Key: "$match", Value: bson.M{
					"$expr": bson.M{"$eq": bson.A{"$" + spec.roomKey, "$$room_id"}},
				}}},
				bson.D{{Key: "$sort", Value: bson.M{"seq": 1}}},
			},
			"as": "messages",
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"id": 1}}},
		bson.D{{Key: "$project", Value: project}},
	}

	cur, err := s.db.Collection(spec.rooms).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.RoomView{}
	for cur.Next(ctx) {
		var v models.RoomView
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		if v.Messages == nil {
			v.Messages = []models.MessageView{}
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

// MarkRoomRead sets read on every message currently in the room, including
// ones already read; re-running it is a no-op with the same matched count.
func (s *mongoStore) MarkRoomRead(ctx context.Context, topo models.Topology, roomID int64) (int64, error) {
	spec := specFor(topo)
	res, err := s.db.Collection(spec.messages).UpdateMany(ctx,
		bson.M{spec.roomKey: roomID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}
