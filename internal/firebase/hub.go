// File: internal/firebase/hub.go
package firebase

import (
	"sync"

	"desirius_backend/internal/shared"
)

type subscriber struct {
	id int
	fn func(shared.AuthEvent)
}

// hub fans auth events out to subscribers in registration order.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

func (h *hub) subscribe(fn func(shared.AuthEvent)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit calls every subscriber without holding the lock.
func (h *hub) emit(ev shared.AuthEvent) {
	h.mu.Lock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
