package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/honeynil/UdhaarLedger/internal/realtime"
	"github.com/segmentio/kafka-go"
)

// Deliverer is the local side of the bus, normally *realtime.Hub.
type Deliverer interface {
	Deliver(shopID int64, event string, msg []byte) int
}

type Consumer struct {
	reader *kafka.Reader
	local  Deliverer
}

// NewConsumer reads the notification topic. groupID must be unique per
// instance so that every instance sees every event.
func NewConsumer(brokers []string, topic, groupID string, local Deliverer) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
		}),
		local: local,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}
		if err := c.handle(msg.Value); err != nil {
			slog.Error("skipping Kafka message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(value []byte) error {
	env, err := realtime.Decode(value)
	if err != nil {
		return err
	}
	delivered := c.local.Deliver(env.ShopID, env.Event, value)
	slog.Debug("bus event delivered", "shop_id", env.ShopID, "event", env.Event, "sessions", delivered)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
