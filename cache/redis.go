package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// invalidateScript flags an existing tag hash without creating one for unknown tags.
var invalidateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HSET", KEYS[1], "invalidated", "1")
end
return 0
`)

// RedisCache stores each tag as a hash.
// Keys never expire in redis: a stale value must stay available until it is replaced.
type RedisCache struct {
	rdb *redis.Client
}

var _ TagCache = RedisCache{}

func NewRedisCache(rdb *redis.Client) RedisCache {
	return RedisCache{rdb: rdb}
}

// NewRedisCacheFromURL connects to the redis server at redisURL
// and checks the connection before returning.
func NewRedisCacheFromURL(ctx context.Context, redisURL string) (RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return RedisCache{}, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return RedisCache{}, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisCache(rdb), nil
}

func redisTagKey(tag string) string {
	return "revalidate/tag/" + tag
}

func (r RedisCache) Get(ctx context.Context, tag string) (Entry, bool, error) {
	fields, err := r.rdb.HGetAll(ctx, redisTagKey(tag)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	storedAt, err := strconv.ParseInt(fields["stored_at"], 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("malformed stored_at for tag %s: %w", tag, err)
	}
	expires, err := strconv.ParseInt(fields["expires"], 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("malformed expires for tag %s: %w", tag, err)
	}
	return Entry{
		Tag:         tag,
		Value:       []byte(fields["value"]),
		StoredAt:    time.UnixMilli(storedAt),
		Expires:     time.UnixMilli(expires),
		Invalidated: fields["invalidated"] == "1",
	}, true, nil
}

func (r RedisCache) Set(ctx context.Context, tag string, value []byte, ttl time.Duration) error {
	entry := newEntry(tag, value, ttl)
	return r.rdb.HSet(ctx, redisTagKey(tag), map[string]interface{}{
		"value":       entry.Value,
		"stored_at":   entry.StoredAt.UnixMilli(),
		"expires":     entry.Expires.UnixMilli(),
		"invalidated": "0",
	}).Err()
}

func (r RedisCache) Invalidate(ctx context.Context, tag string) error {
	return invalidateScript.Run(ctx, r.rdb, []string{redisTagKey(tag)}).Err()
}

// Close closes the redis client.
func (r RedisCache) Close() error {
	return r.rdb.Close()
}
