package notification

import (
	"context"
	"sync"
)

// Hub fan-outs notifications to the owning user's active stream
// subscriptions. Slow subscribers are dropped rather than blocking the
// publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Notification
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Notification)}
}

// Subscribe registers a subscriber for one user and returns the channel the
// subscriber reads from. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan Notification {
	ch := make(chan Notification, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Notification)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if userSubs, ok := h.subs[userID]; ok {
			delete(userSubs, id)
			if len(userSubs) == 0 {
				delete(h.subs, userID)
			}
		}
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers the notification to every active subscription of its user.
func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Subscribers reports the number of open subscriptions for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
