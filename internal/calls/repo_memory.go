package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and database-less runs.
// A single mutex makes every Update atomic.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
	clock   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]Record{}, clock: time.Now}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.CallID]; ok {
		return ErrDuplicate
	}
	now := r.clock().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.records[rec.CallID] = rec
	return nil
}

func (r *MemoryRepo) FindByCallID(ctx context.Context, callID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) Update(ctx context.Context, callID string, u Update) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callID]
	if !ok {
		return Record{}, ErrNotFound
	}
	if u.IsEmpty() {
		return rec, nil
	}
	u.Apply(&rec)
	rec.UpdatedAt = r.clock().UTC()
	r.records[callID] = rec
	return rec, nil
}

func (r *MemoryRepo) List(ctx context.Context, from, to time.Time) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.StartTime.Before(from) || !rec.StartTime.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
