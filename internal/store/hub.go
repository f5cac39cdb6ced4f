package store

import (
	"sync"
)

// Hub fans changes out to per-collection subscribers. Store
// implementations embed it and call Publish after each write.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]func(Change)
}

func (h *Hub) Subscribe(collection string, fn func(Change)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = map[string]map[int]func(Change){}
	}
	if h.subs[collection] == nil {
		h.subs[collection] = map[int]func(Change){}
	}
	id := h.next
	h.next++
	h.subs[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[collection], id)
		})
	}
}

// Publish delivers c synchronously to the collection's subscribers.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	fns := make([]func(Change), 0, len(h.subs[c.Collection]))
	for _, fn := range h.subs[c.Collection] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
