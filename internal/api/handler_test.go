package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/config"
	"github.com/fathima-sithara/chat-relay/internal/models"
	"github.com/fathima-sithara/chat-relay/internal/service"
	"github.com/fathima-sithara/chat-relay/internal/ws"
)

// memStore gives the handlers real message/room semantics without Mongo.
type memStore struct {
	mu       sync.Mutex
	messages map[string][]models.Message
	seq      map[string]int64
	rooms    map[models.Topology][]models.RoomView
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		messages: make(map[string][]models.Message),
		seq:      make(map[string]int64),
		rooms:    make(map[models.Topology][]models.RoomView),
	}
}

func storeKey(topo models.Topology, roomID int64) string {
	return fmt.Sprintf("%s:%d", topo, roomID)
}

func (s *memStore) AppendMessage(_ context.Context, topo models.Topology, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey(topo, m.RoomID())
	s.seq[k]++
	m.Seq = s.seq[k]
	m.Read = false
	s.messages[k] = append(s.messages[k], *m)
	return nil
}

func (s *memStore) ListByRoom(_ context.Context, topo models.Topology, roomID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey(topo, roomID)
	out := make([]models.Message, len(s.messages[k]))
	copy(out, s.messages[k])
	return out, nil
}

func (s *memStore) ListRoomsJoined(_ context.Context, topo models.Topology) ([]models.RoomView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RoomView{}
	for _, r := range s.rooms[topo] {
		view := r
		view.Messages = []models.MessageView{}
		for _, m := range s.messages[storeKey(topo, r.RoomID)] {
			view.Messages = append(view.Messages, models.MessageView{
				SenderID: m.SenderID,
				Message:  m.Body,
				WriteDay: m.WriteDay,
				Read:     m.Read,
			})
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *memStore) MarkRoomRead(_ context.Context, topo models.Topology, roomID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[storeKey(topo, roomID)]
	for i := range msgs {
		msgs[i].Read = true
	}
	return int64(len(msgs)), nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func newTestApp(t *testing.T, store *memStore) *fiber.App {
	t.Helper()
	log := zap.NewNop().Sugar()
	hub := ws.NewHub(log)
	svc := service.New(store, hub, nil, log)
	cfg := &config.Config{RequestTimeout: time.Second}
	return NewServer(cfg, svc, ws.NewServer(hub, nil, log), log)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSendThenListThenMarkRead(t *testing.T) {
	store := newMemStore()
	app := newTestApp(t, store)

	resp := doJSON(t, app, http.MethodPost, "/api/messages", fiber.Map{
		"roomId": 5, "senderId": "u1", "message": "hi", "writeDay": "2024-01-01",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Status string         `json:"status"`
		Data   models.Message `json:"data"`
	}
	decode(t, resp, &created)
	assert.Equal(t, "ok", created.Status)
	assert.Equal(t, int64(1), created.Data.Seq)

	resp = doJSON(t, app, http.MethodGet, "/api/messages/5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []models.Message
	decode(t, resp, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", msgs[0].SenderID)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, "2024-01-01", msgs[0].WriteDay)
	assert.False(t, msgs[0].Read)

	resp = doJSON(t, app, http.MethodPut, "/api/messages/5/read", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var marked struct {
		Updated int64 `json:"updated"`
	}
	decode(t, resp, &marked)
	assert.Equal(t, int64(1), marked.Updated)

	resp = doJSON(t, app, http.MethodGet, "/api/messages/5", nil)
	decode(t, resp, &msgs)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func TestMarkReadEmptyRoomReturns404(t *testing.T) {
	app := newTestApp(t, newMemStore())

	resp := doJSON(t, app, http.MethodPut, "/api/messages/999/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/api/togetherMessages/999/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkReadInvalidRoomIDReturns400(t *testing.T) {
	app := newTestApp(t, newMemStore())

	resp := doJSON(t, app, http.MethodPut, "/api/togetherMessages/abc/read", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendRejectsBadBodies(t *testing.T) {
	app := newTestApp(t, newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/messages", fiber.Map{"roomId": 5, "message": "no sender"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRoomsIncludesEmptyRooms(t *testing.T) {
	store := newMemStore()
	store.rooms[models.Pairwise] = []models.RoomView{
		{RoomID: 5, Member1: "u1", Member2: "u2"},
		{RoomID: 6, Member1: "u3", Member2: "u4"},
	}
	app := newTestApp(t, store)

	resp := doJSON(t, app, http.MethodPost, "/api/messages", fiber.Map{
		"roomId": 5, "senderId": "u1", "message": "hi", "writeDay": "2024-01-01",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/chatRooms", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var views []models.RoomView
	require.NoError(t, json.Unmarshal(raw, &views))
	require.Len(t, views, 2)
	assert.Equal(t, int64(5), views[0].RoomID)
	require.Len(t, views[0].Messages, 1)
	assert.Equal(t, "hi", views[0].Messages[0].Message)
	assert.Empty(t, views[1].Messages)
	// empty rooms serialize an empty array, not null
	assert.Contains(t, string(raw), `"messages":[]`)
}

func TestGroupAndPairwiseRoomsWithSameIDStayDistinct(t *testing.T) {
	store := newMemStore()
	store.rooms[models.Pairwise] = []models.RoomView{{RoomID: 5, Member1: "u1", Member2: "u2"}}
	store.rooms[models.Group] = []models.RoomView{{RoomID: 5, TogetherID: "trip", Members: []string{"a", "b", "c"}}}
	app := newTestApp(t, store)

	resp := doJSON(t, app, http.MethodPost, "/api/messages", fiber.Map{
		"roomId": 5, "senderId": "u1", "message": "pair", "writeDay": "d",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/togetherMessages", fiber.Map{
		"roomId": 5, "senderId": "a", "message": "group", "writeDay": "d",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var pair []models.Message
	resp = doJSON(t, app, http.MethodGet, "/api/messages/5", nil)
	decode(t, resp, &pair)
	require.Len(t, pair, 1)
	assert.Equal(t, "pair", pair[0].Body)

	var group []models.Message
	resp = doJSON(t, app, http.MethodGet, "/api/togetherMessages/5", nil)
	decode(t, resp, &group)
	require.Len(t, group, 1)
	assert.Equal(t, "group", group[0].Body)

	var groupViews []models.RoomView
	resp = doJSON(t, app, http.MethodGet, "/api/togetherChatRooms", nil)
	decode(t, resp, &groupViews)
	require.Len(t, groupViews, 1)
	assert.Equal(t, "trip", groupViews[0].TogetherID)
	assert.Equal(t, []string{"a", "b", "c"}, groupViews[0].Members)
}

func TestHealthz(t *testing.T) {
	store := newMemStore()
	app := newTestApp(t, store)

	resp := doJSON(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	store.pingErr = fmt.Errorf("mongo down")
	resp = doJSON(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
