// Package notify fans status events out to subscribers without ever blocking
// the publisher.
package notify

import (
	"errors"
	"sync"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// Hub is a publish/subscribe hub with a bounded buffer per subscriber. When a
// buffer is full the oldest buffered event of that subscriber is dropped.
type Hub struct {
	mu       sync.Mutex
	capacity int
	metrics  Metrics
	subs     map[uint64]*Subscription
	nextID   uint64
	closed   bool
}

// Subscription receives events published after it was created.
type Subscription struct {
	hub    *Hub
	id     uint64
	events chan model.StatusEvent
}

// NewHub constructs a Hub whose subscribers buffer up to capacity events.
func NewHub(capacity int, metrics Metrics) (*Hub, error) {
	if capacity <= 0 {
		return nil, errors.New("status channel capacity must be positive")
	}
	if metrics == nil {
		return nil, errors.New("notifier metrics is required")
	}
	return &Hub{
		capacity: capacity,
		metrics:  metrics,
		subs:     make(map[uint64]*Subscription),
	}, nil
}

// Publish delivers event to every subscriber.
func (h *Hub) Publish(event model.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.metrics.ObservePublished(event.Kind)
	for _, sub := range h.subs {
		h.deliver(sub, event)
	}
}

// deliver must be called with h.mu held; sends only happen under the lock, so
// popping one buffered event always frees a slot.
func (h *Hub) deliver(sub *Subscription, event model.StatusEvent) {
	select {
	case sub.events <- event:
		return
	default:
	}

	select {
	case <-sub.events:
		h.metrics.ObserveDropped()
	default:
	}

	select {
	case sub.events <- event:
	default:
		h.metrics.ObserveDropped()
	}
}

// Subscribe registers a new subscriber. On a closed hub the returned
// subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		hub:    h,
		events: make(chan model.StatusEvent, h.capacity),
	}
	if h.closed {
		close(sub.events)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscription; later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
}

// Events returns the event channel. It is closed when the subscription or
// the hub is closed.
func (s *Subscription) Events() <-chan model.StatusEvent {
	return s.events
}

// Close unsubscribes. Buffered events remain readable until drained.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.events)
}
