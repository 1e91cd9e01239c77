package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pbx-connector/internal/auth"

	"github.com/gin-gonic/gin"
)

func withRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(t *testing.T, handlers ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(t, withRole(RoleAdmin), RequireAnyRole(RoleManager)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_OtherRoleForbidden(t *testing.T) {
	if code := serve(t, withRole(RoleAgent), RequireAnyRole(RoleManager)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_RoleRequired(t *testing.T) {
	if code := serve(t, RequireAnyRole(RoleManager)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequirePermission(t *testing.T) {
	if code := serve(t, withRole(RoleAgent), RequirePermission(PermMakeOutgoingCalls)); code != 200 {
		t.Fatalf("expected agent to dial, got %d", code)
	}
	if code := serve(t, withRole(RoleViewer), RequirePermission(PermMakeOutgoingCalls)); code != 403 {
		t.Fatalf("expected viewer forbidden, got %d", code)
	}
}
