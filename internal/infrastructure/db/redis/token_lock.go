package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vetcare/identity-api/internal/core/domain"
)

const defaultLockTTL = 10 * time.Second

// releaseScript deletes the lock only while it still holds our owner value,
// so a lock that expired and was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TokenLock serialises refresh and logout calls presenting the same token.
// Key format: session-lock:<sha256(token)>
type TokenLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenLock creates a TokenLock wrapping the given Redis client. A ttl of
// zero selects defaultLockTTL.
func NewTokenLock(client *redis.Client, ttl time.Duration) *TokenLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &TokenLock{client: client, ttl: ttl}
}

// Acquire takes the lock for token. When another caller already holds it,
// domain.ErrConcurrentUpdate is returned.
func (l *TokenLock) Acquire(ctx context.Context, token string) (func(), error) {
	key := lockKey(token)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire token lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrConcurrentUpdate
	}

	release := func() {
		// The request context may already be done; the lock must still go.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		// On failure the TTL reclaims it.
		_ = releaseScript.Run(ctx, l.client, []string{key}, owner).Err()
	}
	return release, nil
}

func lockKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session-lock:" + hex.EncodeToString(sum[:])
}
