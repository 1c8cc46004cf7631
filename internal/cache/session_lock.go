package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// SessionLocker serializes turns of one session. The returned unlock func is safe to call more than once.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client     *redisv9.Client
	ttl        time.Duration
	retryEvery time.Duration
}

func NewRedisLocker(client *redisv9.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, retryEvery: 50 * time.Millisecond}
}

// Lock polls SET NX until it wins or ctx ends. The ttl bounds how long a crashed holder blocks others.
func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("acquire session lock failed: %w", ctx.Err())
			}
			return nil, fmt.Errorf("redis acquire session lock failed: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire session lock failed: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

func lockKey(sessionID string) string {
	return "chat:lock:" + sessionID
}

// LocalLocker is the in-process SessionLocker used when redis is disabled.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

func (l *LocalLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[sessionID]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, s)
		return nil, fmt.Errorf("acquire session lock failed: %w", ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(sessionID, s)
		})
	}, nil
}

func (l *LocalLocker) release(sessionID string, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, sessionID)
	}
}
