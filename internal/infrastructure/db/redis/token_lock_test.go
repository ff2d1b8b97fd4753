package redis

import (
	"context"
	"strings"
	"testing"
)

func TestLockKey_HashesToken(t *testing.T) {
	key := lockKey("secret-refresh-token")

	if !strings.HasPrefix(key, "session-lock:") {
		t.Fatalf("expected session-lock prefix, got %q", key)
	}
	if strings.Contains(key, "secret-refresh-token") {
		t.Fatal("raw token must not appear in the lock key")
	}
	if got := len(strings.TrimPrefix(key, "session-lock:")); got != 64 {
		t.Fatalf("expected 64 hex chars, got %d", got)
	}
}

func TestLockKey_StablePerToken(t *testing.T) {
	if lockKey("a") != lockKey("a") {
		t.Fatal("same token must map to the same key")
	}
	if lockKey("a") == lockKey("b") {
		t.Fatal("different tokens must map to different keys")
	}
}

func TestNewTokenLock_DefaultTTL(t *testing.T) {
	l := NewTokenLock(nil, 0)
	if l.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl %v, got %v", defaultLockTTL, l.ttl)
	}
}

func TestConnect_RequiresAddress(t *testing.T) {
	client, err := Connect(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for empty address")
	}
	if client != nil {
		t.Fatal("expected nil client")
	}
}
