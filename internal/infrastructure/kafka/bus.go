package kafka

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/realtime"
)

// BusPublisher sends realtime envelopes through Kafka instead of the local
// hub. Every instance runs a Consumer that feeds the topic back into its own
// hub, so sessions connected to any instance receive the event.
type BusPublisher struct {
	producer KafkaProducer
	topic    string
}

func NewBusPublisher(producer KafkaProducer, topic string) *BusPublisher {
	return &BusPublisher{producer: producer, topic: topic}
}

func (b *BusPublisher) Publish(ctx context.Context, shopID int64, event string, payload any) error {
	msg, err := realtime.Encode(shopID, event, payload)
	if err != nil {
		return err
	}
	return b.producer.Send(ctx, b.topic, shopID, msg)
}

var _ realtime.Publisher = (*BusPublisher)(nil)
