package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Topology selects which room namespace an operation targets. Pairwise and
// group rooms live in separate collections and never share an id space.
type Topology string

const (
	Pairwise Topology = "chat"
	Group    Topology = "together"
)

func (t Topology) Valid() bool {
	return t == Pairwise || t == Group
}

// Room is a pairwise conversation between exactly two members.
type Room struct {
	ID      int64  `bson:"id" json:"roomId"`
	Member1 string `bson:"member1" json:"member1"`
	Member2 string `bson:"member2" json:"member2"`
}

// TogetherRoom is a fixed-membership group conversation.
type TogetherRoom struct {
	ID         int64    `bson:"id" json:"roomId"`
	TogetherID string   `bson:"together_id" json:"togetherId"`
	Members    []string `bson:"members" json:"members"`
}

// Message is a single chat message. Immutable after creation except for the
// read flag, which flips to true in bulk when a room is marked read.
// ChatRoomID is set for pairwise messages, GroupRoomID for group messages;
// the other stays zero and is omitted from storage and JSON.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ChatRoomID  int64              `bson:"chat_room_id,omitempty" json:"roomId,omitempty"`
	GroupRoomID int64              `bson:"group_room_id,omitempty" json:"groupRoomId,omitempty"`
	SenderID    string             `bson:"sender_id" json:"senderId"`
	Body        string             `bson:"message" json:"message"`
	WriteDay    string             `bson:"write_day" json:"writeDay"`
	Seq         int64              `bson:"seq" json:"seq"`
	Read        bool               `bson:"read" json:"read"`
}

// RoomID returns whichever room reference is set for the message's topology.
func (m *Message) RoomID() int64 {
	if m.GroupRoomID != 0 {
		return m.GroupRoomID
	}
	return m.ChatRoomID
}

// MessageView is the projection used inside a joined room view.
type MessageView struct {
	SenderID string `bson:"senderId" json:"senderId"`
	Message  string `bson:"message" json:"message"`
	WriteDay string `bson:"writeDay" json:"writeDay"`
	Read     bool   `bson:"read" json:"read"`
}

// RoomView is a room with its full message sequence, computed per query.
// Pairwise views carry member1/member2, group views togetherId/members.
type RoomView struct {
	RoomID     int64         `bson:"roomId" json:"roomId"`
	Member1    string        `bson:"member1,omitempty" json:"member1,omitempty"`
	Member2    string        `bson:"member2,omitempty" json:"member2,omitempty"`
	TogetherID string        `bson:"together_id,omitempty" json:"togetherId,omitempty"`
	Members    []string      `bson:"members,omitempty" json:"members,omitempty"`
	Messages   []MessageView `bson:"messages" json:"messages"`
}
