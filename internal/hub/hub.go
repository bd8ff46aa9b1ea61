// ABOUTME: Fan-out of decoded frames and tracking messages to local consumers
// ABOUTME: Slow subscribers lose events instead of stalling the receiver
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// Kind tells which field of an Event is set.
type Kind int

const (
	KindFrame Kind = iota
	KindSSL
	KindSST
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindSSL:
		return "ssl"
	case KindSST:
		return "sst"
	default:
		return "unknown"
	}
}

// Event is one item published by the receiver. Consumers must treat the
// payload as read-only; it is shared by every subscriber.
type Event struct {
	Kind  Kind
	Frame odas.Frame
	SSL   tracking.SSL
	SST   tracking.SST
}

// Subscription receives events on C until it is unsubscribed.
type Subscription struct {
	C       <-chan Event
	ch      chan Event
	dropped atomic.Uint64
}

// Dropped counts events this subscriber missed because its buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Hub fans events out to any number of subscribers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is harmless.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.published.Add(1)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// Published counts events handed to Publish.
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Dropped counts deliveries skipped across all subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// HandleFrame publishes a decoded audio frame.
func (h *Hub) HandleFrame(f odas.Frame) {
	h.Publish(Event{Kind: KindFrame, Frame: f})
}

// HandleSSL publishes a localization message.
func (h *Hub) HandleSSL(msg tracking.SSL) {
	h.Publish(Event{Kind: KindSSL, SSL: msg})
}

// HandleSST publishes a tracking message.
func (h *Hub) HandleSST(msg tracking.SST) {
	h.Publish(Event{Kind: KindSST, SST: msg})
}
