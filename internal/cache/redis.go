package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/metrics"
)

const (
	DefaultPrefix = "admin:events:list:"
	scanBatch     = 200
)

// Dial connects to redis and checks the connection.
func Dial(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Redis shares cached pages between admin-bff replicas.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	clock  domain.Clock
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration, clock domain.Clock) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, clock: clock}
}

// StorageKey hashes a query key under the configured prefix.
func (r *Redis) StorageKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	val, err := r.rdb.Get(ctx, r.StorageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return Entry{}, false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("redis", "error").Inc()
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		metrics.CacheLookups.WithLabelValues("redis", "error").Inc()
		return Entry{}, false, err
	}
	// EXPIRE has second granularity and the replicas' clocks are not ours.
	if !fresh(e, r.clock.Now(), r.ttl) {
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return Entry{}, false, nil
	}
	metrics.CacheLookups.WithLabelValues("redis", "hit").Inc()
	return e, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.StorageKey(key), b, r.ttl).Err()
}

// InvalidateAll deletes every key under the prefix.
func (r *Redis) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	metrics.CacheInvalidations.WithLabelValues("redis").Inc()
	return nil
}

// Ping backs the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
