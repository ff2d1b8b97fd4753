package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/identity-api/internal/core/domain"
	"github.com/vetcare/identity-api/internal/core/ports"
	"github.com/vetcare/identity-api/internal/infrastructure/security"
)

func newIssuer(t *testing.T) *security.JWTIssuer {
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
	return issuer
}

func runAuth(t *testing.T, verifier TokenVerifier, header string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(verifier)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := newIssuer(t)
	user := &domain.User{ID: "user-1", FirstName: "Ana", LastName: "Vet", Email: "ana@vetcare.test", Role: domain.RoleAdmin}
	signed, err := issuer.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec, c, called := runAuth(t, issuer, "Bearer "+signed)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	claims, ok := c.Get(ClaimsKey).(*ports.AccessClaims)
	if !ok {
		t.Fatalf("claims not set")
	}
	if claims.UserID != "user-1" || claims.Email != "ana@vetcare.test" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if c.Get("role") != "admin" {
		t.Fatalf("role not set")
	}
	if c.Get("user_id") != "user-1" {
		t.Fatalf("user_id not set")
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec, _, called := runAuth(t, newIssuer(t), "")

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	rec, _, called := runAuth(t, newIssuer(t), "Token abc")

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	rec, _, called := runAuth(t, newIssuer(t), "Bearer not-a-token")

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_TokenFromOtherIssuer(t *testing.T) {
	other, err := security.NewJWTIssuer(security.JWTOptions{
		Secret:   "0123456789abcdef0123456789abcdef",
		Issuer:   "someone-else",
		Audience: "vetcare-api",
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	signed, err := other.IssueAccessToken(&domain.User{ID: "user-1", Role: domain.RoleDoctor})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	rec, _, called := runAuth(t, newIssuer(t), "Bearer "+signed)

	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
