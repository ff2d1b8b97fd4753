package domain

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSession_IsExpired_Boundaries(t *testing.T) {
	s := &Session{Kind: TokenKindRefresh, ExpiresAt: t0}

	if s.IsExpired(t0) {
		t.Fatal("expiry == now must still be valid")
	}
	if s.IsExpired(t0.Add(-time.Second)) {
		t.Fatal("expiry after now must be valid")
	}
	if !s.IsExpired(t0.Add(time.Second)) {
		t.Fatal("expiry before now must be expired")
	}
}

func TestSession_IsUsableForReset(t *testing.T) {
	reset := &Session{Kind: TokenKindResetPassword, Token: "tok", ExpiresAt: t0}
	refresh := &Session{Kind: TokenKindRefresh, Token: "tok", ExpiresAt: t0.Add(time.Hour)}

	tests := []struct {
		name  string
		s     *Session
		token string
		now   time.Time
		want  bool
	}{
		{"valid", reset, "tok", t0.Add(-time.Second), true},
		{"expiry equals now", reset, "tok", t0, false},
		{"expired", reset, "tok", t0.Add(time.Second), false},
		{"wrong token", reset, "other", t0.Add(-time.Second), false},
		{"empty token", reset, "", t0.Add(-time.Second), false},
		{"refresh kind", refresh, "tok", t0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.IsUsableForReset(tt.token, tt.now); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	local := t0.In(time.FixedZone("UTC-6", -6*3600))
	s := NewSession(TokenKindRefresh, "tok", local, RefreshSessionLifetime)

	if s.ID == "" {
		t.Fatal("expected an id")
	}
	if !s.ExpiresAt.Equal(t0.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", s.ExpiresAt)
	}
	if s.CreatedAt.Location() != time.UTC {
		t.Fatal("timestamps must be UTC")
	}
}

func TestSession_RotateKeepsIdentity(t *testing.T) {
	s := NewSession(TokenKindRefresh, "old", t0, time.Hour)
	id, expiry := s.ID, s.ExpiresAt

	s.Rotate("new")

	if s.ID != id || !s.ExpiresAt.Equal(expiry) || s.Token != "new" {
		t.Fatalf("unexpected session after rotate: %+v", s)
	}

	s.Extend(t0.Add(time.Minute), time.Hour)
	if !s.ExpiresAt.Equal(t0.Add(time.Hour + time.Minute)) {
		t.Fatalf("unexpected expiry after extend: %v", s.ExpiresAt)
	}
}
