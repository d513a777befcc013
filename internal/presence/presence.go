package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps websocket session presence in Redis so other instances (and
// ops tooling) can see who is connected.
// Keys used:
// - <prefix>:session:<sessionID> -> json {status,connected_at,last_seen}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type State struct {
	Status      string `json:"status"`
	ConnectedAt int64  `json:"connected_at,omitempty"`
	LastSeen    int64  `json:"last_seen"`
}

func NewStore(r *redis.Client, prefix string) *Store {
	return &Store{client: r, prefix: prefix, ttl: 24 * time.Hour}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

func (s *Store) Connected(ctx context.Context, sessionID string) error {
	now := time.Now().Unix()
	b, _ := json.Marshal(State{Status: "online", ConnectedAt: now, LastSeen: now})
	return s.client.Set(ctx, s.key(sessionID), b, s.ttl).Err()
}

func (s *Store) Disconnected(ctx context.Context, sessionID string) error {
	b, _ := json.Marshal(State{Status: "offline", LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.key(sessionID), b, s.ttl).Err()
}

func (s *Store) Get(ctx context.Context, sessionID string) (*State, error) {
	b, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
