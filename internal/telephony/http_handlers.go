package telephony

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"pbx-connector/internal/audit"
	"pbx-connector/internal/auth"
	"pbx-connector/internal/directory"
	"pbx-connector/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	signatureField = "vtigersignature"
	eventField     = "callstatus"
)

// WebhookAuditor records webhooks turned away at the door.
type WebhookAuditor interface {
	LogWebhookRejected(ctx context.Context, ip, event, callID, reason string) error
}

// WebhookHandler converts the PBX form post into an Event and hands it to the
// router. The PBX always gets an XML document with status 200.
type WebhookHandler struct {
	Router *Router
	// Secret is the key shared with the PBX; every webhook must carry it.
	Secret string
	Audit  WebhookAuditor
}

// HandleEvent serves POST /webhooks/pbx and POST /webhooks/pbx/:event.
// Without a path parameter the event name is read from the callstatus field.
func (h WebhookHandler) HandleEvent(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("pbx webhook parse failed", "err", err)
		writeDocument(c, FailureDocument())
		return
	}
	ev := Event{Name: c.Param("event"), Params: c.Request.Form}
	if ev.Name == "" {
		ev.Name = ev.get(eventField)
	}

	if !h.signatureValid(ev.exact(signatureField)) {
		log.Warn("pbx webhook rejected", "event", ev.Name, "call_id", ev.CallID(), "ip", c.ClientIP())
		if h.Audit != nil {
			if err := h.Audit.LogWebhookRejected(c.Request.Context(), c.ClientIP(), ev.Name, ev.CallID(), "invalid signature"); err != nil {
				log.Error("audit webhook rejection failed", "err", err)
			}
		}
		writeDocument(c, FailureDocument())
		return
	}

	writeDocument(c, h.Router.Handle(c.Request.Context(), ev))
}

func (h WebhookHandler) signatureValid(got string) bool {
	if h.Secret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) == 1
}

func writeDocument(c *gin.Context, doc Document) {
	c.Data(http.StatusOK, ContentType, doc)
}

// Caller originates calls on the PBX.
type Caller interface {
	Call(ctx context.Context, extension, number string) bool
}

// UserLookup resolves the authenticated user.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (directory.User, error)
}

// DialAuditor records click-to-call attempts.
type DialAuditor interface {
	LogOutboundDial(ctx context.Context, a audit.DialAttempt) error
}

// DialHandler lets an authenticated user ring a number from their own extension.
type DialHandler struct {
	Dialer Caller
	Users  UserLookup
	Audit  DialAuditor
}

type dialRequest struct {
	Number string `json:"number" binding:"required"`
}

// HandleDial serves POST /v1/calls/dial. The answer is {"success": bool};
// why a call failed stays in the server logs.
func (h DialHandler) HandleDial(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	userID, err := auth.UserID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	role, _ := auth.Role(ctx)

	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Number) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number is required"})
		return
	}
	number := strings.TrimSpace(req.Number)

	user, err := h.Users.UserByID(ctx, userID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "no extension configured"})
		return
	case err != nil:
		log.Error("user lookup failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	extension := strings.TrimSpace(user.Extension)
	if extension == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "no extension configured"})
		return
	}

	ok := h.Dialer.Call(ctx, extension, number)

	if h.Audit != nil {
		err := h.Audit.LogOutboundDial(ctx, audit.DialAttempt{
			ActorUserID: userID,
			ActorRole:   role,
			IP:          c.ClientIP(),
			Extension:   extension,
			Number:      number,
			Success:     ok,
		})
		if err != nil {
			log.Error("audit outbound dial failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
