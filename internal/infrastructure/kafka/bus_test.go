package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/honeynil/UdhaarLedger/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	topic string
	key   int64
	value []byte
}

type fakeProducer struct {
	sent []sentMessage
	err  error
}

func (p *fakeProducer) Send(_ context.Context, topic string, key int64, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type sink struct{ msgs [][]byte }

func (s *sink) Send(msg []byte) bool {
	s.msgs = append(s.msgs, msg)
	return true
}

func TestBusPublisher_KeysByShop(t *testing.T) {
	producer := &fakeProducer{}
	bus := NewBusPublisher(producer, "order-events")

	err := bus.Publish(context.Background(), 12, realtime.EventOrderUpdate, map[string]any{"order_id": 3, "status": "accepted"})
	require.NoError(t, err)
	require.Len(t, producer.sent, 1)
	assert.Equal(t, "order-events", producer.sent[0].topic)
	assert.Equal(t, int64(12), producer.sent[0].key)

	env, err := realtime.Decode(producer.sent[0].value)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventOrderUpdate, env.Event)
}

func TestBusPublisher_PropagatesSendError(t *testing.T) {
	bus := NewBusPublisher(&fakeProducer{err: errors.New("broker down")}, "order-events")
	err := bus.Publish(context.Background(), 1, realtime.EventNewOrder, map[string]int{"id": 1})
	assert.Error(t, err)
}

func TestConsumer_HandleDeliversToLocalHub(t *testing.T) {
	hub := realtime.NewHub()
	s := &sink{}
	hub.Register("s", s)
	require.NoError(t, hub.Subscribe("s", 12))
	consumer := &Consumer{local: hub}

	msg, err := realtime.Encode(12, realtime.EventNewOrder, map[string]int{"id": 9})
	require.NoError(t, err)
	require.NoError(t, consumer.handle(msg))
	require.Len(t, s.msgs, 1)
	assert.Equal(t, msg, s.msgs[0])

	assert.Error(t, consumer.handle([]byte(`{"event":""}`)))
	assert.Len(t, s.msgs, 1)
}
