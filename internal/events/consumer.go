package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer feeds MessageCreated events from sibling instances into a
// handler (normally the local hub).
type Consumer struct {
	reader *kafka.Reader
	origin string
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID, origin string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: r, origin: origin, log: log}
}

// Start blocks reading events until ctx is cancelled or the reader closes.
// Events this instance published are skipped so local subscribers are not
// notified twice.
func (c *Consumer) Start(ctx context.Context, handler func(ev MessageCreated)) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warnw("kafka read", "error", err)
			return
		}
		var ev MessageCreated
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Warnw("kafka event decode", "error", err)
			continue
		}
		if ev.Origin == c.origin {
			continue
		}
		handler(ev)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
