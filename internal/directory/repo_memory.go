package directory

import (
	"context"
	"sort"
	"sync"
)

// MemoryDirectory is an in-memory Directory for tests and database-less runs.
type MemoryDirectory struct {
	mu        sync.RWMutex
	users     map[string]User
	customers []Customer
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: map[string]User{}}
}

// PutUser inserts or replaces a user.
func (d *MemoryDirectory) PutUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u.Extension = normalizeNumber(u.Extension)
	d.users[u.ID] = u
}

// PutCustomer appends a customer. The first customer registered for a number wins on lookup.
func (d *MemoryDirectory) PutCustomer(c Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.Number = normalizeNumber(c.Number)
	d.customers = append(d.customers, c)
}

func (d *MemoryDirectory) UserByID(ctx context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (d *MemoryDirectory) UserByNumber(ctx context.Context, number string) (User, error) {
	number = normalizeNumber(number)
	if number == "" {
		return User{}, ErrNotFound
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, id := range d.sortedIDs() {
		if u := d.users[id]; u.Extension == number {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (d *MemoryDirectory) UserNumbers(ctx context.Context) ([]RoutingCandidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoutingCandidate, 0, len(d.users))
	for _, id := range d.sortedIDs() {
		u := d.users[id]
		if u.Extension == "" {
			continue
		}
		out = append(out, RoutingCandidate{UserID: u.ID, Number: u.Extension})
	}
	return out, nil
}

func (d *MemoryDirectory) CustomerByNumber(ctx context.Context, number string) (Customer, error) {
	number = normalizeNumber(number)
	if number == "" {
		return Customer{}, ErrNotFound
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if c.Number == number {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

// sortedIDs must be called with mu held.
func (d *MemoryDirectory) sortedIDs() []string {
	ids := make([]string, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
