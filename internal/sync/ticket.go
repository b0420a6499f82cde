package sync

import (
	"context"
	"sync"
)

// ticketSet tracks in-flight request handles as cancellation tokens. Every
// outbound network call registers a ticket for its lifetime; cancelAll is a
// broadcast over the set.
type ticketSet struct {
	mu      sync.Mutex
	next    int
	cancels map[int]context.CancelFunc
}

// add registers a cancel func and returns its ticket id.
func (t *ticketSet) add(cancel context.CancelFunc) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancels == nil {
		t.cancels = make(map[int]context.CancelFunc)
	}
	t.next++
	t.cancels[t.next] = cancel
	return t.next
}

// remove deregisters a ticket whose request completed or was cancelled.
func (t *ticketSet) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cancels, id)
}

// cancelAll cancels every in-flight request. Tickets stay registered until
// their requests observe the cancellation and call remove.
func (t *ticketSet) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cancel := range t.cancels {
		cancel()
	}
}

func (t *ticketSet) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancels)
}
