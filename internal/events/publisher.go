package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fathima-sithara/chat-relay/internal/models"
)

// MessageCreated mirrors every persisted message onto the event bus so
// sibling relay instances can fan it out to their own subscribers. Origin
// lets an instance skip events it produced itself.
type MessageCreated struct {
	Origin   string          `json:"origin"`
	Topology models.Topology `json:"topology"`
	RoomID   int64           `json:"roomId"`
	Message  *models.Message `json:"message"`
}

type Publisher struct {
	writer *kafka.Writer
	origin string
}

func NewPublisher(brokers []string, topic, origin string) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w, origin: origin}
}

func (p *Publisher) PublishMessageCreated(ctx context.Context, topo models.Topology, roomID int64, m *models.Message) error {
	ev := MessageCreated{Origin: p.origin, Topology: topo, RoomID: roomID, Message: m}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", topo, roomID)),
		Value: b,
		Time:  time.Now(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
