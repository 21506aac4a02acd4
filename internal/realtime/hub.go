// Package realtime fans order lifecycle events out to the sessions that
// joined a shop's channel. Delivery is best effort: nothing is queued for
// sessions that are not connected and nothing is replayed.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/observability"
	pkgerrors "github.com/honeynil/UdhaarLedger/pkg/errors"
)

const (
	EventNewOrder    = "new_order"
	EventOrderUpdate = "order_update"
	EventJoined      = "joined"
	EventError       = "error"
)

// Publisher is what the order lifecycle depends on to announce changes.
type Publisher interface {
	Publish(ctx context.Context, shopID int64, event string, payload any) error
}

// Sink receives encoded envelopes for one session. Send must not block; it
// reports whether the message was accepted.
type Sink interface {
	Send(msg []byte) bool
}

// Envelope is the wire shape of every realtime message.
type Envelope struct {
	Event  string          `json:"event"`
	ShopID int64           `json:"shop_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func Encode(shopID int64, event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, ShopID: shopID, Data: data})
}

func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Event == "" || env.ShopID == 0 {
		return env, pkgerrors.Validationf("envelope requires event and shop_id")
	}
	return env, nil
}

// Hub is the in-process channel table. A single mutex serializes
// membership changes and deliveries, so each sink sees a shop's events in
// publish order.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]Sink
	channels map[int64]map[string]struct{}
	joined   map[string]map[int64]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: map[string]Sink{},
		channels: map[int64]map[string]struct{}{},
		joined:   map[string]map[int64]struct{}{},
	}
}

func (h *Hub) Register(sessionID string, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		observability.RealtimeSessions.Inc()
	}
	h.sessions[sessionID] = sink
}

// Unregister drops the session and all of its channel memberships.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return
	}
	for shopID := range h.joined[sessionID] {
		members := h.channels[shopID]
		delete(members, sessionID)
		if len(members) == 0 {
			delete(h.channels, shopID)
		}
	}
	delete(h.joined, sessionID)
	delete(h.sessions, sessionID)
	observability.RealtimeSessions.Dec()
}

// Subscribe adds the session to the shop's channel. Joining twice is a no-op.
func (h *Hub) Subscribe(sessionID string, shopID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return pkgerrors.ErrSessionNotFound
	}
	if h.channels[shopID] == nil {
		h.channels[shopID] = map[string]struct{}{}
	}
	h.channels[shopID][sessionID] = struct{}{}
	if h.joined[sessionID] == nil {
		h.joined[sessionID] = map[int64]struct{}{}
	}
	h.joined[sessionID][shopID] = struct{}{}
	return nil
}

// Members reports how many sessions are in the shop's channel.
func (h *Hub) Members(shopID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[shopID])
}

func (h *Hub) Publish(_ context.Context, shopID int64, event string, payload any) error {
	msg, err := Encode(shopID, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(shopID, event, msg)
	return nil
}

// Deliver hands an already encoded envelope to every member of the channel
// and returns how many sinks accepted it.
func (h *Hub) Deliver(shopID int64, event string, msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sessionID := range h.channels[shopID] {
		if h.sessions[sessionID].Send(msg) {
			delivered++
			observability.NotificationsPublished.WithLabelValues(event).Inc()
			continue
		}
		observability.NotificationsDropped.WithLabelValues(event).Inc()
		slog.Warn("realtime event dropped", "session_id", sessionID, "shop_id", shopID, "event", event)
	}
	return delivered
}
