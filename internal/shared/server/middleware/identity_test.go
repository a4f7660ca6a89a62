package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func resolveIdentity(t *testing.T, router *gin.Engine, header string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("X-User-Id", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Body.String()
}

func newIdentityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})
	return r
}

func TestIdentityUsesHeaderWhenPresent(t *testing.T) {
	router := newIdentityRouter()
	if got := resolveIdentity(t, router, "user-9"); got != "user-9" {
		t.Fatalf("user id = %q, want user-9", got)
	}
}

func TestIdentityAnonymousIsStableAcrossRequests(t *testing.T) {
	router := newIdentityRouter()
	first := resolveIdentity(t, router, "")
	second := resolveIdentity(t, router, "")
	if !strings.HasPrefix(first, "anon:") {
		t.Fatalf("anonymous id = %q, want anon: prefix", first)
	}
	if first != second {
		t.Fatalf("anonymous id changed between requests: %q vs %q", first, second)
	}
}
