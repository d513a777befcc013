package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/models"
	"github.com/fathima-sithara/chat-relay/internal/presence"
)

const (
	maxFrameSize  = 64 * 1024
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// controlFrame is what clients send to manage room subscriptions.
type controlFrame struct {
	Action   string          `json:"action"`
	Topology models.Topology `json:"topology"`
	RoomID   int64           `json:"roomId"`
}

// Server upgrades websocket connections and runs their read/write pumps
// against the hub.
type Server struct {
	hub      *Hub
	presence *presence.Store // nil when Redis is not configured
	log      *zap.SugaredLogger
}

func NewServer(hub *Hub, pres *presence.Store, log *zap.SugaredLogger) *Server {
	return &Server{hub: hub, presence: pres, log: log}
}

func (s *Server) Hub() *Hub { return s.hub }

// HandleWS is the websocket.Handler mounted with websocket.New().
// Route: /ws?sessionId=<id>; a missing id gets a generated one.
func (s *Server) HandleWS(conn *websocket.Conn) {
	sessionID := conn.Query("sessionId")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	sess := s.hub.Register(sessionID)
	if s.presence != nil {
		if err := s.presence.Connected(context.Background(), sessionID); err != nil {
			s.log.Warnw("presence connect", "session", sessionID, "error", err)
		}
	}
	defer func() {
		s.hub.Unregister(sess)
		if s.presence != nil {
			_ = s.presence.Disconnected(context.Background(), sessionID)
		}
		_ = conn.Close()
	}()

	go s.writePump(conn, sess)
	s.readPump(conn, sess)
}

func (s *Server) readPump(conn *websocket.Conn, sess *Session) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if !frame.Topology.Valid() || frame.RoomID == 0 {
			continue
		}
		switch frame.Action {
		case "subscribe":
			s.hub.Subscribe(sess, frame.Topology, frame.RoomID)
		case "unsubscribe":
			s.hub.Unsubscribe(sess, frame.Topology, frame.RoomID)
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case b, ok := <-sess.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
