package lockmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it is still owned by the
// releasing token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is the distributed Locker for multi-process deployments
// sharing one ledger store. The lock key holds the lease token with a TTL
// so a crashed holder can not wedge the account forever. Reentrancy is
// tracked locally: nested acquisitions by the holder of the lease bump a
// counter without touching Redis.
type RedisLocker struct {
	client *redis.Client
	prefix string

	poll    time.Duration
	timeout time.Duration
	ttl     time.Duration

	mu     sync.Mutex
	counts map[string]*redisHold
}

type redisHold struct {
	token   string
	counter int
}

// NewRedisLocker creates a Redis-backed lock manager. timeout bounds a
// single acquisition and must be positive: a distributed lock that waits
// forever turns a lost peer into a full outage.
func NewRedisLocker(client *redis.Client, poll, timeout, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:  client,
		prefix:  "lock:account:",
		poll:    poll,
		timeout: timeout,
		ttl:     ttl,
		counts:  make(map[string]*redisHold),
	}
}

func (r *RedisLocker) key(account string) string {
	return r.prefix + account
}

// Acquire claims the account lock via SET NX, polling until the bounded
// timeout expires.
func (r *RedisLocker) Acquire(ctx context.Context, account string, lease *Lease) (*Lease, error) {
	r.mu.Lock()
	if hold, ok := r.counts[account]; ok && lease != nil && hold.token == lease.token {
		hold.counter++
		r.mu.Unlock()
		return lease, nil
	}
	r.mu.Unlock()

	granted := lease
	if granted == nil {
		granted = newLease()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for {
		ok, err := r.client.SetNX(ctx, r.key(account), granted.token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: account %s", ErrAcquireTimeout, account)
			}
			return nil, fmt.Errorf("redis lock acquire: %w", err)
		}

		if ok {
			r.mu.Lock()
			r.counts[account] = &redisHold{token: granted.token, counter: 1}
			r.mu.Unlock()
			return granted, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: account %s", ErrAcquireTimeout, account)
		case <-time.After(r.poll):
		}
	}
}

// Release undoes one acquisition; the Redis key is removed when the last
// local acquisition is released and only if the token still owns it.
func (r *RedisLocker) Release(account string, lease *Lease) error {
	r.mu.Lock()
	hold, ok := r.counts[account]
	if !ok || hold.counter < 1 {
		r.mu.Unlock()
		return fmt.Errorf("%w: account %s", ErrNotLocked, account)
	}

	if lease == nil || lease.token != hold.token {
		r.mu.Unlock()
		return fmt.Errorf("%w: account %s", ErrInvalidLease, account)
	}

	hold.counter--
	last := hold.counter == 0
	if last {
		delete(r.counts, account)
	}
	r.mu.Unlock()

	if !last {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{r.key(account)}, lease.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis lock release: %w", err)
	}

	return nil
}
