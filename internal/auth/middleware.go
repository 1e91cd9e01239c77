package auth

import (
	"net/http"
	"strings"
	"time"

	"pbx-connector/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

// bearerToken extracts the token from "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAccessToken verifies an access token and injects the caller identity into the
// request context. Permission checks belong to internal/rbac.
// The request logger gains user_id so dial and report logs can be traced to a CRM user.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("access token rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := claims.Identity()
		log := logger.FromGin(c).With("user_id", id.UserID, "role", id.Role)
		ctx := WithIdentity(c.Request.Context(), id.UserID, id.Role)
		c.Request = c.Request.WithContext(logger.With(ctx, log))
		logger.SetGin(c, log)

		c.Next()
	}
}
