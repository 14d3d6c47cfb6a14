package mfa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"insights-dashboard/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter counts verify attempts per access token.
type Limiter interface {
	Allow(ctx context.Context, accessToken string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every API instance.
// Keys hold a digest of the access token, never the token itself.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, accessToken string) (bool, error) {
	return utils.AllowAttempt(ctx, l.rdb, attemptKey(accessToken), l.limit, l.window)
}

func attemptKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "mfa:verify:" + hex.EncodeToString(sum[:])
}
