package main

import (
	"context"
	"log/slog"
	"net/http"

	"pbx-connector/internal/audit"
	"pbx-connector/internal/auth"
	"pbx-connector/internal/calls"
	"pbx-connector/internal/config"
	"pbx-connector/internal/directory"
	"pbx-connector/internal/httpapi"
	"pbx-connector/internal/rbac"
	"pbx-connector/internal/reporting"
	"pbx-connector/internal/telephony"

	"github.com/gin-gonic/gin"
)

type deps struct {
	auth      *auth.Manager
	calls     calls.Repository
	directory directory.Directory
	audit     *audit.Service
	locks     calls.Locker
	health    func(ctx context.Context) error
	log       *slog.Logger

	authLimit *httpapi.KeyedLimiter
	dialLimit *httpapi.KeyedLimiter
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, d deps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := d.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// PBX webhooks (public, authenticated by the shared secret).
	{
		machine := calls.NewStateMachine(d.calls, d.directory, gatewayName)
		machine.Log = d.log
		responses := telephony.ResponseBuilder{
			Permissions: rbac.NewRoleChecker(d.directory),
			Trunk:       cfg.PBX.OutboundTrunk,
			Log:         d.log,
		}
		h := telephony.WebhookHandler{
			Router: telephony.NewRouter(machine, d.directory, responses, d.locks),
			Secret: cfg.PBX.SecretKey,
			Audit:  d.audit,
		}
		r.POST("/webhooks/pbx", h.HandleEvent)
		r.POST("/webhooks/pbx/:event", h.HandleEvent)
	}

	api := httpapi.Handlers{
		Auth:    d.auth,
		Users:   d.directory,
		Reports: reporting.NewService(d.calls),
	}

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	authGroup := v1.Group("/auth")
	authGroup.Use(httpapi.RateLimitByIP(d.authLimit))
	{
		authGroup.POST("/refresh", api.Refresh)
		if !cfg.IsProduction() {
			authGroup.POST("/token", api.IssueToken)
		}
	}

	// protected API group
	protected := v1.Group("")
	protected.Use(auth.RequireAccessToken(d.auth))
	{
		protected.GET("/me", api.Me)

		callsGroup := protected.Group("/calls")
		{
			dial := telephony.DialHandler{
				Dialer: telephony.NewDialer(cfg.PBX, d.log),
				Users:  d.directory,
				Audit:  d.audit,
			}
			callsGroup.POST("/dial",
				rbac.RequirePermission(rbac.PermMakeOutgoingCalls),
				httpapi.RateLimitByUser(d.dialLimit),
				dial.HandleDial,
			)
			callsGroup.GET("/summary", rbac.RequireAnyRole(rbac.RoleManager), api.CallsSummary)
		}
	}
}
