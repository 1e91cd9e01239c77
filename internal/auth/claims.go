package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrTokenTypeMismatch = errors.New("auth: token_type mismatch")
	ErrMissingUserID     = errors.New("auth: user_id missing")
	ErrMissingRole       = errors.New("auth: role missing in access token")
)

// Claims carry the CRM user id. The dial endpoint resolves the user's PBX extension from it.
// Refresh tokens carry no role; the role is re-read from the directory on refresh.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// check validates the custom claims after signature and time checks passed.
func (c Claims) check(expected TokenType) error {
	switch {
	case c.TokenType != expected:
		return ErrTokenTypeMismatch
	case c.UserID == "":
		return ErrMissingUserID
	case expected == TokenTypeAccess && c.Role == "":
		return ErrMissingRole
	}
	return nil
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role}
}
