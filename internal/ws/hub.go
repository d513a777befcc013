package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/metrics"
	"github.com/fathima-sithara/chat-relay/internal/models"
)

// Event is the push frame delivered to subscribed sessions.
type Event struct {
	Type     string          `json:"type"`
	Topology models.Topology `json:"topology"`
	RoomID   int64           `json:"roomId"`
	Message  *models.Message `json:"message,omitempty"`
}

// Session is one connected websocket client. Delivery goes through a
// buffered channel; a full buffer drops the frame instead of blocking the
// room's other subscribers.
type Session struct {
	ID     string
	send   chan []byte
	closed bool
}

func newSession(id string) *Session {
	return &Session{
		ID:   id,
		send: make(chan []byte, 256),
	}
}

// Hub maps rooms to subscribed sessions and fans persisted messages out to
// them. Subscriptions carry no durability: a session that misses a frame
// recovers by re-fetching over HTTP.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}
	subs     map[*Session]map[string]struct{}
	log      *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		rooms:    make(map[string]map[*Session]struct{}),
		subs:     make(map[*Session]map[string]struct{}),
		log:      log,
	}
}

func roomKey(topo models.Topology, roomID int64) string {
	return fmt.Sprintf("%s:%d", topo, roomID)
}

func (h *Hub) Register(sessionID string) *Session {
	s := newSession(sessionID)
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	metrics.LiveSessions.Inc()
	return s
}

// Unregister drops the session from every room it subscribed to and closes
// its delivery channel. Safe to call more than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(h.sessions, s)
	for key := range h.subs[s] {
		if set, ok := h.rooms[key]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.rooms, key)
			}
		}
		metrics.LiveSubscriptions.Dec()
	}
	delete(h.subs, s)
	close(s.send)
	metrics.LiveSessions.Dec()
}

func (h *Hub) Subscribe(s *Session, topo models.Topology, roomID int64) {
	key := roomKey(topo, roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*Session]struct{})
	}
	if _, ok := h.rooms[key][s]; ok {
		return
	}
	h.rooms[key][s] = struct{}{}
	if _, ok := h.subs[s]; !ok {
		h.subs[s] = make(map[string]struct{})
	}
	h.subs[s][key] = struct{}{}
	metrics.LiveSubscriptions.Inc()
}

func (h *Hub) Unsubscribe(s *Session, topo models.Topology, roomID int64) {
	key := roomKey(topo, roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[key]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.rooms, key)
	}
	delete(h.subs[s], key)
	metrics.LiveSubscriptions.Dec()
}

// PublishMessage fans a freshly persisted message out to the room's
// subscribers. Called by the service only after the store write committed.
func (h *Hub) PublishMessage(topo models.Topology, roomID int64, m *models.Message) {
	ev := Event{Type: "message", Topology: topo, RoomID: roomID, Message: m}
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorw("marshal push event", "error", err)
		return
	}
	h.Publish(topo, roomID, b)
}

// Publish delivers a pre-encoded frame to every subscriber of the room.
// Slow subscribers are skipped, never waited on.
func (h *Hub) Publish(topo models.Topology, roomID int64, payload []byte) {
	key := roomKey(topo, roomID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[key] {
		select {
		case s.send <- payload:
		default:
			metrics.DroppedDeliveries.Inc()
			h.log.Warnw("dropped delivery to slow subscriber", "session", s.ID, "room", key)
		}
	}
}

// SubscriberCount reports how many sessions are subscribed to the room.
func (h *Hub) SubscriberCount(topo models.Topology, roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey(topo, roomID)])
}
