package rbac

import (
	"context"
	"errors"

	"pbx-connector/internal/directory"
)

// Checker answers whether a user holds a permission.
type Checker interface {
	HasPermission(ctx context.Context, userID string, p Permission) (bool, error)
}

// UserLookup is the directory capability RoleChecker depends on.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (directory.User, error)
}

// RoleChecker resolves the user's role from the directory and consults the role table.
// Unknown users hold no permissions.
type RoleChecker struct {
	Users UserLookup
}

func NewRoleChecker(users UserLookup) RoleChecker {
	return RoleChecker{Users: users}
}

func (c RoleChecker) HasPermission(ctx context.Context, userID string, p Permission) (bool, error) {
	if c.Users == nil {
		return false, errors.New("rbac: user lookup not configured")
	}
	u, err := c.Users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return RoleAllows(u.Role, p), nil
}
