// Package lock provides a per-entity advisory lock with a bounded lease,
// backed by Redis. Operations on the same loan or the same lender account
// acquire the entity's lock first, so they serialize; different entities
// proceed in parallel.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"lendpool/pkg/id"
)

var ErrNotAcquired = errors.New("lock: entity busy")

// releaseScript deletes the key only if the caller still holds the lease, so
// an expired holder cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb   *redis.Client
	lease time.Duration
}

func NewLocker(rdb *redis.Client, lease time.Duration) *Locker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &Locker{rdb: rdb, lease: lease}
}

// Lease is a held lock. Release is safe to call exactly once.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Acquire takes the exclusive lock for the entity key, retrying briefly
// before giving up with ErrNotAcquired.
func (l *Locker) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := id.NewID32()
	full := "lock:" + key
	backoff := 25 * time.Millisecond
	for attempt := 0; attempt < 8; attempt++ {
		ok, err := l.rdb.SetNX(ctx, full, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lease{locker: l, key: full, token: token}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 400*time.Millisecond {
			backoff *= 2
		}
	}
	return nil, ErrNotAcquired
}

func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.locker == nil {
		return nil
	}
	_, err := releaseScript.Run(ctx, le.locker.rdb, []string{le.key}, le.token).Result()
	return err
}
