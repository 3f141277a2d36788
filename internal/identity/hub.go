package identity

import (
	"sync"

	"hostelcare/internal/model"
)

// Source is the push-based session notifier. Subscribe delivers the current
// principal immediately and then again on every auth state change; a nil
// principal means signed out. The returned function cancels the subscription.
type Source interface {
	Subscribe(handler func(principal *model.Principal)) (unsubscribe func())
}

// Hub is an in-process Source. The sign-in flow pushes verified principals
// into it; tests drive it directly in place of a real provider.
type Hub struct {
	mu      sync.Mutex
	current *model.Principal
	subs    map[int]func(*model.Principal)
	nextID  int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(*model.Principal))}
}

func (h *Hub) Subscribe(handler func(*model.Principal)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = handler
	current := h.current
	h.mu.Unlock()

	handler(current)

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Hub) SignIn(principal model.Principal) {
	p := principal
	h.notify(&p)
}

func (h *Hub) SignOut() {
	h.notify(nil)
}

// Current returns the principal of the live session, or nil.
func (h *Hub) Current() *model.Principal {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	p := *h.current
	return &p
}

func (h *Hub) notify(principal *model.Principal) {
	h.mu.Lock()
	h.current = principal
	handlers := make([]func(*model.Principal), 0, len(h.subs))
	for _, handler := range h.subs {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	// Handlers run outside the lock.
	for _, handler := range handlers {
		handler(principal)
	}
}
