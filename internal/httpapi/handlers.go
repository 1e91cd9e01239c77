package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pbx-connector/internal/auth"
	"pbx-connector/internal/directory"
	"pbx-connector/internal/reporting"
	"pbx-connector/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UserLookup resolves token subjects to directory users.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (directory.User, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Users   UserLookup
	Reports *reporting.Service
	Now     func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// IssueToken hands out a token pair for a directory user. The role always
// comes from the directory.
//
// NOTE: no credential check. Only registered outside production.
func (h Handlers) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	h.issueFor(c, req.UserID)
}

// Refresh exchanges a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	h.issueFor(c, claims.UserID)
}

func (h Handlers) issueFor(c *gin.Context, userID string) {
	u, err := h.Users.UserByID(c.Request.Context(), userID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	case err != nil:
		logger.FromGin(c).Error("user lookup failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), u.ID, u.Role)
	if errors.Is(err, auth.ErrMissingRole) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user has no role"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the identity carried by the access token.
func (h Handlers) Me(c *gin.Context) {
	id, _ := auth.IdentityFrom(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
}

// --- Reporting ---

// CallsSummary serves GET /v1/calls/summary?from=&to=[&direction=], times in RFC3339.
func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	from, errFrom := time.Parse(time.RFC3339, c.Query("from"))
	to, errTo := time.Parse(time.RFC3339, c.Query("to"))
	if errFrom != nil || errTo != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC3339"})
		return
	}

	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		Range:     reporting.TimeRange{From: from.UTC(), To: to.UTC()},
		Direction: c.Query("direction"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range or direction"})
			return
		}
		logger.FromGin(c).Error("calls summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
