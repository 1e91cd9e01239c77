package audit

import (
	"context"
	"sync"
)

// defaultMemoryCap bounds the in-process log; the oldest events are dropped first.
const defaultMemoryCap = 10000

// MemoryRepo keeps audit events in process. Used when no database is configured.
type MemoryRepo struct {
	mu     sync.Mutex
	cap    int
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return NewMemoryRepoWithCap(defaultMemoryCap) }

func NewMemoryRepoWithCap(n int) *MemoryRepo {
	if n <= 0 {
		n = defaultMemoryCap
	}
	return &MemoryRepo{cap: n}
}

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.cap {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (r *MemoryRepo) Events() []Event {
	return r.filter(func(Event) bool { return true })
}

// EventsOfType returns the retained events with the given type, oldest first.
func (r *MemoryRepo) EventsOfType(t EventType) []Event {
	return r.filter(func(e Event) bool { return e.Type == t })
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
