package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/server/auth"
	"github.com/indieinfra/plaza/server/util"
)

func testConfig() *config.Config {
	return &config.Config{Auth: config.Auth{JwtSecret: "0123456789abcdef0123"}}
}

func TestValidateTokenMiddleware_MissingToken(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/post/p1", nil)

	ValidateTokenMiddleware(testConfig(), next).ServeHTTP(rr, req)

	if nextCalled {
		t.Fatalf("next handler should not be called when token missing")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestValidateTokenMiddleware_InvalidToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called for an invalid token")
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/post/p1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	cfg := testConfig()
	cfg.Debug = true
	ValidateTokenMiddleware(cfg, next).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestValidateTokenMiddleware_StoresClaimsAndLogger(t *testing.T) {
	cfg := testConfig()
	token, err := auth.IssueAccessToken(&cfg.Auth, "user-7", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var subject string
	var haveLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = auth.Subject(r.Context())
		haveLogger = util.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/user/user-7", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	ValidateTokenMiddleware(cfg, next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if subject != "user-7" {
		t.Fatalf("subject = %q, want user-7", subject)
	}
	if !haveLogger {
		t.Fatalf("expected request logger in context")
	}
}
