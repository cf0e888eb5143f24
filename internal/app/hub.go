package app

import (
	"context"
	"sync"

	"book-duel-service/internal/domain"
)

// Hub fans snapshots out to in-process subscribers, one topic per match.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subscribers map[chan domain.Snapshot]struct{}
	version     int64
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]*topic)}
}

// Subscribe registers a listener seeded with initial. The caller must invoke
// the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(initial domain.Snapshot) (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)
	ch <- initial

	h.mu.Lock()
	t, ok := h.topics[initial.ID]
	if !ok {
		t = &topic{subscribers: make(map[chan domain.Snapshot]struct{})}
		h.topics[initial.ID] = t
	}
	t.subscribers[ch] = struct{}{}
	if initial.Version > t.version {
		t.version = initial.Version
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		t, ok := h.topics[initial.ID]
		if !ok {
			return
		}
		if _, ok := t.subscribers[ch]; ok {
			delete(t.subscribers, ch)
			close(ch)
		}
		if len(t.subscribers) == 0 {
			delete(h.topics, initial.ID)
		}
	}
	return ch, cancel
}

// Publish delivers snap to every subscriber of its match. Versions already
// delivered are skipped, so relayed duplicates are harmless.
func (h *Hub) Publish(_ context.Context, snap domain.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[snap.ID]
	if !ok || snap.Version <= t.version {
		return nil
	}
	t.version = snap.Version
	for ch := range t.subscribers {
		select {
		case ch <- snap:
		default:
			// slow reader: drop its oldest snapshot, the newest is a superset
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return nil
}

// Subscribers reports how many listeners a match currently has.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[matchID]; ok {
		return len(t.subscribers)
	}
	return 0
}
