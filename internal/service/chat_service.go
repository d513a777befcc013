package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/events"
	"github.com/fathima-sithara/chat-relay/internal/metrics"
	"github.com/fathima-sithara/chat-relay/internal/models"
	"github.com/fathima-sithara/chat-relay/internal/repository"
)

var ErrBadRequest = errors.New("bad request")

// Fanout is the live delivery channel. The hub implements it; tests swap
// in a recorder.
type Fanout interface {
	PublishMessage(topo models.Topology, roomID int64, m *models.Message)
}

// ChatService owns the message/room operations for both topologies. Sends
// are committed at the store; fan-out and the event mirror run strictly
// after the write and never affect the caller's result.
type ChatService struct {
	store  repository.Store
	fanout Fanout
	pub    *events.Publisher // nil when Kafka is not configured
	log    *zap.SugaredLogger
}

func New(store repository.Store, fanout Fanout, pub *events.Publisher, log *zap.SugaredLogger) *ChatService {
	return &ChatService{store: store, fanout: fanout, pub: pub, log: log}
}

// Send persists a message and then notifies subscribers. The room id is
// not checked against the room directory and the sender is not checked
// against membership; the identity layer upstream is trusted.
func (s *ChatService) Send(ctx context.Context, topo models.Topology, roomID int64, senderID, body, writeDay string) (*models.Message, error) {
	if roomID <= 0 || senderID == "" {
		return nil, ErrBadRequest
	}

	m := &models.Message{
		SenderID: senderID,
		Body:     body,
		WriteDay: writeDay,
	}
	if topo == models.Group {
		m.GroupRoomID = roomID
	} else {
		m.ChatRoomID = roomID
	}

	if err := s.store.AppendMessage(ctx, topo, m); err != nil {
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues(string(topo)).Inc()

	// The write is the commit point. A caller that gave up waiting still
	// gets its message delivered, so post-commit work runs detached from
	// the request context.
	s.fanout.PublishMessage(topo, roomID, m)
	if s.pub != nil {
		if err := s.pub.PublishMessageCreated(context.WithoutCancel(ctx), topo, roomID, m); err != nil {
			s.log.Warnw("event mirror publish", "room", roomID, "error", err)
		}
	}
	return m, nil
}

// ListMessages returns a room's messages in append order.
func (s *ChatService) ListMessages(ctx context.Context, topo models.Topology, roomID int64) ([]models.Message, error) {
	if roomID <= 0 {
		return nil, ErrBadRequest
	}
	return s.store.ListByRoom(ctx, topo, roomID)
}

// ListRooms returns the joined view of every room in the topology.
func (s *ChatService) ListRooms(ctx context.Context, topo models.Topology) ([]models.RoomView, error) {
	return s.store.ListRoomsJoined(ctx, topo)
}

// MarkRoomRead flips read on every message in the room. A room with no
// messages reports ErrNotFound; re-marking an already-read room succeeds
// with the same count.
func (s *ChatService) MarkRoomRead(ctx context.Context, topo models.Topology, roomID int64) (int64, error) {
	if roomID <= 0 {
		return 0, ErrBadRequest
	}
	matched, err := s.store.MarkRoomRead(ctx, topo, roomID)
	if err != nil {
		return 0, err
	}
	if matched == 0 {
		return 0, repository.ErrNotFound
	}
	metrics.RoomsMarkedRead.WithLabelValues(string(topo)).Inc()
	return matched, nil
}

// Healthy reports whether the backing store is reachable.
func (s *ChatService) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}
