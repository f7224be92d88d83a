package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

const cacheKeyPrefix = "vcm:catalog"

// Cache stores catalog resolutions per (version, year, make, model, body
// style). Implementations report a miss with ok false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (res *Resolution, ok bool, err error)
	Set(ctx context.Context, key string, res *Resolution) error
}

// CacheKey builds the key of a descriptor whose codes are already coerced
// to catalog keys, so 3 and "3" share an entry. Segments are query-escaped,
// so a ':' inside a code cannot shift the boundaries between segments.
func CacheKey(versionID interface{}, year int, makeKey, modelKey, bodyStyleKey string) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s:%s", cacheKeyPrefix,
		url.QueryEscape(idString(versionID)), year,
		url.QueryEscape(makeKey), url.QueryEscape(modelKey), url.QueryEscape(bodyStyleKey))
}

// RedisCache keeps resolutions as BSON so identifier types such as
// ObjectIDs survive the round trip.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Resolution, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var res Resolution
	if err := bson.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return &res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res *Resolution) error {
	data, err := bson.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Resolution, bool, error) { return nil, false, nil }

func (NopCache) Set(context.Context, string, *Resolution) error { return nil }
