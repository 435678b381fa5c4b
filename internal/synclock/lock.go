// Package synclock serializes sync invocations through a redis lease so
// that two overlapping syncs cannot both read the same existing-keys
// snapshot and race their inserts.
package synclock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLocked is returned when another sync already holds the lease.
var ErrLocked = errors.New("sync already in progress")

const keyPrefix = "koneps:sync:lock:"

// DefaultTTL bounds how long a crashed holder can block new syncs.
const DefaultTTL = 30 * time.Minute

// Lock is a redis-backed mutual exclusion lease.
type Lock struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a lock manager over the given redis client.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "synclock").Logger(),
	}
}

// releaseScript deletes the lease only while the token still matches, in
// one atomic step on the server.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Acquire takes the named lease. It returns a release func on success and
// ErrLocked when another holder is active. The release is an atomic
// compare-and-delete on the token, so an expired lease taken over by a
// newer sync is never released from under it.
func (l *Lock) Acquire(ctx context.Context, name string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := keyPrefix + name

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		l.logger.Warn().Str("lock", name).Msg("Sync lock already held")
		return nil, ErrLocked
	}

	l.logger.Debug().Str("lock", name).Msg("Sync lock acquired")

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("lock", name).Msg("Failed to release sync lock")
		}
	}
	return release, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
