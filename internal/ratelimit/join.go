package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shelflife/internal/config"
	storedomain "github.com/smallbiznis/shelflife/internal/store/domain"
)

const keyStoreJoin = "shelflife:join:%s"

// JoinLimiter throttles invite-code joins per client key with a token bucket.
type JoinLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewJoinLimiter(bucket *TokenBucket, perMinute, burst int) *JoinLimiter {
	if bucket == nil || perMinute <= 0 || burst <= 0 {
		return nil
	}
	return &JoinLimiter{
		bucket: bucket,
		rate:   float64(perMinute) / 60,
		burst:  burst,
	}
}

func (l *JoinLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	decision, err := l.bucket.Allow(ctx, fmt.Sprintf(keyStoreJoin, strings.TrimSpace(key)), l.rate, l.burst)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ProvideJoinLimiter yields a nil interface when redis is off so the store
// service skips throttling entirely.
func ProvideJoinLimiter(cfg config.Config, client *redis.Client) storedomain.JoinLimiter {
	limiter := NewJoinLimiter(NewTokenBucket(client), cfg.Redis.JoinRatePerMinute, cfg.Redis.JoinBurst)
	if limiter == nil {
		return nil
	}
	return limiter
}
