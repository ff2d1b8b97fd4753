package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vetcare/identity-api/internal/api/handler"
	"github.com/vetcare/identity-api/internal/core/service"
	"github.com/vetcare/identity-api/internal/infrastructure/db/memory"
	"github.com/vetcare/identity-api/internal/infrastructure/security"
)

type recordingNotifier struct {
	bodies []string
}

func (n *recordingNotifier) Send(_ context.Context, _, _, htmlBody string) error {
	n.bodies = append(n.bodies, htmlBody)
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	issuer, err := security.NewJWTIssuer(security.JWTOptions{
		Secret:    "0123456789abcdef0123456789abcdef",
		Issuer:    "vetcare-identity",
		Audience:  "vetcare-api",
		AccessTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	svc := service.NewAuthService(
		memory.NewCredentialStore(),
		security.NewBcryptHasher(4),
		issuer,
		&recordingNotifier{},
		zerolog.Nop(),
	)
	return NewRouter(Deps{
		AuthService: svc,
		Verifier:    issuer,
		Cookies:     handler.CookieOptions{Secure: false},
		Log:         zerolog.Nop(),
		Registry:    prometheus.NewRegistry(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == handler.RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestRouter_SessionLifecycle(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/auth/register",
		`{"first_name":"Ana","last_name":"Vet","email":"ana@vetcare.test","password":"long-enough"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"ana@vetcare.test","password":"long-enough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	first := cookieFrom(rec)
	if first == nil || first.Value == "" {
		t.Fatalf("login: refresh cookie missing")
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/refresh-token", "", first)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	second := cookieFrom(rec)
	if second == nil || second.Value == first.Value {
		t.Fatalf("refresh: cookie not rotated")
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/refresh-token", "", first)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh: expected 401, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/logout", "", second)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/refresh-token", "", second)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

func TestRouter_LoginUnknownUser(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"ghost@vetcare.test","password":"whatever"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User with email ghost@vetcare.test is not found") {
		t.Fatalf("unexpected body: %s", rec.Body)
	}
}

func TestRouter_MeRequiresBearer(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/auth/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_GetUserByID(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/auth/register",
		`{"first_name":"Ana","last_name":"Vet","email":"ana@vetcare.test","password":"long-enough"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var registered struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil || registered.ID == "" {
		t.Fatalf("register: no id in %s", rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/auth/login", `{"email":"ana@vetcare.test","password":"long-enough"}`)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.AccessToken == "" {
		t.Fatalf("login: no access token in %s", rec.Body)
	}

	get := func(id, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec = get(registered.ID, login.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("get user: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var profile map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if profile["id"] != registered.ID || profile["email"] != "ana@vetcare.test" || profile["full_name"] != "Ana Vet" {
		t.Fatalf("unexpected profile: %v", profile)
	}

	missing := "3f1c9a52-8a57-4d5e-9a0e-2b1f6c7d8e90"
	rec = get(missing, login.AccessToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User with id "+missing+" is not found") {
		t.Fatalf("unexpected body: %s", rec.Body)
	}

	if rec = get(registered.ID, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no bearer: expected 401, got %d", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}
