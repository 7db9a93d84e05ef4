package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/infrastructure/security"
	"github.com/silianos/voyage-api/internal/pkg/config"
)

const testSecret = "router-test-secret"

// newTestRouter builds the full router over a lazily connected client. None of
// the requests below reach the database.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("mongo client: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	cfg := &config.Config{
		Env:         "test",
		BasePath:    "/api",
		CORSOrigins: []string{"*"},
		Auth: config.AuthConfig{
			JWTSecret:        testSecret,
			CustomerTokenTTL: time.Hour,
			AdminTokenTTL:    time.Hour,
			BcryptCost:       4,
			RateLimit:        1000,
		},
	}
	e, err := NewRouter(cfg, Deps{DB: client.Database("router_test"), Log: zerolog.Nop()})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return e
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp
}

func customerToken(t *testing.T) string {
	t.Helper()
	issuer, err := security.NewJWTIssuer(testSecret)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	tok, err := issuer.Issue(domain.Identity{ID: "65f0c0ffee0000000000abcd", Kind: domain.KindCustomer, Claim: "a@x.com"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok.Value
}

func TestRouter_PublicProbes(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/", "/health"} {
		if code, _ := do(t, h, http.MethodGet, path, "", ""); code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "voyage_") {
		t.Fatalf("expected voyage metrics, got %d", rec.Code)
	}
}

func TestRouter_VerifyWithoutToken(t *testing.T) {
	h := newTestRouter(t)

	code, resp := do(t, h, http.MethodGet, "/api/auth/verify", "", "")
	if code != http.StatusUnauthorized || resp["error"] != "no token provided" {
		t.Fatalf("unexpected response %d %+v", code, resp)
	}

	code, resp = do(t, h, http.MethodGet, "/api/auth/verify", "garbage", "")
	if code != http.StatusUnauthorized || resp["error"] != "invalid token" {
		t.Fatalf("unexpected response %d %+v", code, resp)
	}
}

func TestRouter_LoginRequiresFields(t *testing.T) {
	h := newTestRouter(t)

	code, resp := do(t, h, http.MethodPost, "/api/auth/user/login", "", `{"email":"a@x.com"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %+v", code, resp)
	}
}

func TestRouter_AdminRoutesRejectMissingAndCustomerTokens(t *testing.T) {
	h := newTestRouter(t)
	userTok := customerToken(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/bookings"},
		{http.MethodGet, "/api/messages/65f0c0ffee0000000000abcd"},
		{http.MethodPatch, "/api/bookings/65f0c0ffee0000000000abcd/status"},
		{http.MethodPatch, "/api/testimonials/65f0c0ffee0000000000abcd/verify"},
		{http.MethodPost, "/api/blog"},
		{http.MethodPut, "/api/gallery/65f0c0ffee0000000000abcd"},
		{http.MethodDelete, "/api/services/65f0c0ffee0000000000abcd"},
		{http.MethodPost, "/api/pricing"},
	}

	for _, r := range routes {
		if code, _ := do(t, h, r.method, r.path, "", ""); code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", r.method, r.path, code)
		}
		if code, _ := do(t, h, r.method, r.path, userTok, ""); code != http.StatusForbidden {
			t.Errorf("%s %s with customer token: expected 403, got %d", r.method, r.path, code)
		}
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestRouter(t)

	if code, _ := do(t, h, http.MethodGet, "/api/nowhere", "", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestRouter_ProfileUpdateChecksTokenFirst(t *testing.T) {
	h := newTestRouter(t)

	code, resp := do(t, h, http.MethodPut, "/api/auth/user/profile", "", `{"email":"not-an-email"}`)
	if code != http.StatusUnauthorized || resp["error"] != "no token provided" {
		t.Fatalf("unexpected response %d %+v", code, resp)
	}
}
