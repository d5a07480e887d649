package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub delivers events to in-process subscribers of a wizard session. Slow
// subscribers lose events rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events for sessionID and a function that
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(sessionID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.SessionID == uuid.Nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.SessionID] {
		select {
		case ch <- event:
		default:
			slog.Warn("Dropping wizard event for slow subscriber", "session_id", event.SessionID, "type", event.Type)
		}
	}
	return nil
}

// Subscribers reports how many subscribers a session has.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
