package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "shelflife:lock:"

// releaseLockScript deletes the lock only while it still carries the
// caller's token, so an expired holder cannot free a newer one.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

var ErrInvalidLock = errors.New("lock needs a name and a positive ttl")

// Locker hands out single-holder leases on named jobs across replicas.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseLockScript),
	}
}

// TryLock returns the lease token and whether the lease was won.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrLimiterNotConfigured
	}
	if name == "" || ttl <= 0 {
		return "", false, ErrInvalidLock
	}

	token := ulid.Make().String()
	won, err := l.client.SetNX(ctx, lockKeyPrefix+name, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !won {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Release(ctx context.Context, name, token string) error {
	if l == nil || l.client == nil || name == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{lockKeyPrefix + name}, token).Err()
}
