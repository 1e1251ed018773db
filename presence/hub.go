package presence

import (
	"slices"
	"sync"
)

// Hub fans raw presence updates out to subscribers.
// Delivery order across users is not guaranteed; a full subscriber buffer
// drops the update rather than blocking the publisher.
type Hub struct {
	// userID -> subscribers
	subscribers map[int]map[chan Status]bool
	mu          sync.RWMutex

	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer updates.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 10
	}
	return &Hub{
		subscribers: make(map[int]map[chan Status]bool),
		buffer:      buffer,
	}
}

// Subscribe registers one channel for updates about any of userIDs.
// The returned cancel func unsubscribes and closes the channel; it is safe
// to call more than once.
func (h *Hub) Subscribe(userIDs []int) (<-chan Status, func()) {
	userIDs = slices.Clone(userIDs)

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Status, h.buffer)
	for _, id := range userIDs {
		if h.subscribers[id] == nil {
			h.subscribers[id] = make(map[chan Status]bool)
		}
		h.subscribers[id][ch] = true
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.unsubscribe(userIDs, ch) })
	}
	return ch, cancel
}

func (h *Hub) unsubscribe(userIDs []int, ch chan Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range userIDs {
		if subs, ok := h.subscribers[id]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, id)
			}
		}
	}
	close(ch)
}

// Publish delivers s to every subscriber watching s.UserID.
func (h *Hub) Publish(s Status) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[s.UserID] {
		select {
		case ch <- s:
		default:
			// Subscriber is behind, skip
		}
	}
}

// Watchers returns how many subscriptions include userID.
func (h *Hub) Watchers(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
