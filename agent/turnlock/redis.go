package turnlock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

type RedisConfig struct {
	Addr     string        `split_words:"true" default:"localhost:6379"`
	Password string        `split_words:"true"`
	DB       int           `split_words:"true" default:"0"`
	TTL      time.Duration `split_words:"true" default:"5m"`
	Prefix   string        `split_words:"true" default:"bikeshop:turn:"`
}

// ttlMargin is how long a lock outlives the longest allowed turn.
const ttlMargin = time.Minute

// LockTTL returns a lock TTL that outlasts a turn bounded by turnTimeout, so
// a lock never expires under a turn that is still running. A zero
// turnTimeout leaves ttl unchanged.
func LockTTL(ttl, turnTimeout time.Duration) time.Duration {
	if turnTimeout > 0 && ttl < turnTimeout+ttlMargin {
		return turnTimeout + ttlMargin
	}
	return ttl
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares turn locks between processes. A lock expires after TTL
// so a crashed holder cannot block a session forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(ctx context.Context, cfg RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("turnlock: connect redis: %w", err)
	}
	return NewRedisLockerFromClient(client, cfg.TTL, cfg.Prefix), nil
}

func NewRedisLockerFromClient(client *redis.Client, ttl time.Duration, prefix string) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "bikeshop:turn:"
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (Release, error) {
	key := l.prefix + sessionID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("turnlock: acquire %s: %w", sessionID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: session %s", contractx.ErrTurnInFlight, sessionID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The turn context may already be canceled.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("turn lock release failed")
			}
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
