package events

import (
	"sync"

	"github.com/google/uuid"

	"carwatch-engine/internal/logging"
)

// subscriberBuffer is the per-subscriber send window. A subscriber that falls
// this many messages behind is considered dead and pruned.
const subscriberBuffer = 32

// Subscription is one live subscriber: an identity and the channel its
// transport drains. The hub owns the channel and closes it on removal.
type Subscription struct {
	ID uuid.UUID
	C  chan string
}

// Hub fans each published message out to every live subscriber. Publish
// order is delivery order; there is no batching.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]*Subscription)}
}

func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		ID: uuid.New(),
		C:  make(chan string, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber; calling it again for the same id is a
// no-op, so transports can defer it unconditionally.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.C)
	}
}

// Publish delivers msg to every subscriber registered at call time. A full
// buffer counts as a delivery failure: that subscriber is pruned, the rest
// still get the message, and Publish itself never fails.
func (h *Hub) Publish(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l := logging.WithComponent("events/hub")
	for id, s := range h.subs {
		select {
		case s.C <- msg:
		default:
			delete(h.subs, id)
			close(s.C)
			l.Warn().Str("subscriber", id.String()).Msg("subscriber too slow, pruned")
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
