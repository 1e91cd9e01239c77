package calls

import (
	"context"
	"time"
)

// Repository persists call records by call id.
//
// Update is the single mutation path: it applies only the supplied fields and
// must be atomic per call id so concurrent events never lose each other's writes.
type Repository interface {
	// Create stores a new record. It returns ErrDuplicate if the call id exists.
	Create(ctx context.Context, r Record) error
	// FindByCallID returns ErrNotFound if no record exists.
	FindByCallID(ctx context.Context, callID string) (Record, error)
	// Update returns the updated record, or ErrNotFound.
	Update(ctx context.Context, callID string, u Update) (Record, error)

	// List returns records that started in [from, to).
	List(ctx context.Context, from, to time.Time) ([]Record, error)
}
