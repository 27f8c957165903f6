package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes turns across service instances sharing one redis.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	poll   time.Duration
	prefix string
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		ttl:    ttl,
		poll:   25 * time.Millisecond,
		prefix: "booking:lock:",
	}
}

type redisLease struct {
	rdb     *redis.Client
	key     string
	token   string
	expires time.Time

	mu       sync.Mutex
	released bool
}

// Valid trusts the local clock: past the TTL the key may belong to someone else.
func (l *redisLease) Valid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.released && time.Now().Before(l.expires)
}

func (l *redisLease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

func (k *RedisLocker) Acquire(ctx context.Context, sessionID string) (Lease, error) {
	key := k.prefix + sessionID
	token := uuid.NewString()

	for {
		started := time.Now()
		ok, err := k.rdb.SetNX(ctx, key, token, k.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock for %s: %w", sessionID, err)
		}
		if ok {
			return &redisLease{rdb: k.rdb, key: key, token: token, expires: started.Add(k.ttl)}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(k.poll):
		}
	}
}
