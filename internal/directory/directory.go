package directory

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("directory: not found")

// Directory resolves users, their PBX numbers and customers.
//
// Implementations are read-only from the connector's point of view.
// Lookups by number are exact matches after surrounding whitespace is trimmed.
type Directory interface {
	UserByID(ctx context.Context, id string) (User, error)
	UserByNumber(ctx context.Context, number string) (User, error)

	// UserNumbers lists every user that has a number configured, ordered by user id.
	UserNumbers(ctx context.Context) ([]RoutingCandidate, error)

	CustomerByNumber(ctx context.Context, number string) (Customer, error)
}

func normalizeNumber(n string) string {
	return strings.TrimSpace(n)
}
