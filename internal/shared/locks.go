package shared

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// OverrideLockKey builds the redis key that serializes override mutations for
// one subject.
func OverrideLockKey(subject string) string {
	return "authz:override:" + subject + ":lock"
}

// Locker provides short-lived mutual exclusion via redis SETNX. The TTL bounds
// how long a crashed holder can block other writers.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker constructs a Locker.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire takes the lock, returning ErrLockHeld when another holder owns it.
func (l *Locker) Acquire(ctx context.Context, key, token string) error {
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock if the token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
