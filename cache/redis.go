package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"safemeds-backend/dtos"
	"safemeds-backend/utils"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "availability:"

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisAvailabilityCache keeps availability reports as JSON under
// availability:YYYY-MM-DD. Redis errors are logged and treated as misses.
type RedisAvailabilityCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisAvailabilityCache{Client: client, TTL: ttl}
}

func Key(date time.Time) string {
	return keyPrefix + utils.StartOfDay(date).Format(utils.DateLayout)
}

// Version counters live outside keyPrefix so InvalidateAll's SCAN never
// deletes them.
const (
	versionPrefix = "availability-version:"
	epochKey      = "availability-epoch"
	versionTTL    = 48 * time.Hour
)

func versionKey(date time.Time) string {
	return versionPrefix + utils.StartOfDay(date).Format(utils.DateLayout)
}

func counter(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// setIfCurrent writes the report only when "<date version>:<epoch>" still
// matches the version the caller read before loading it.
var setIfCurrent = redis.NewScript(`
local version = (redis.call("GET", KEYS[2]) or "0") .. ":" .. (redis.call("GET", KEYS[3]) or "0")
if version ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// Get returns the cached report and the version a later Set must present.
// On a Redis error the version is empty, which no Set will accept.
func (c *RedisAvailabilityCache) Get(ctx context.Context, date time.Time) ([]dtos.StaffAvailability, string, bool) {
	values, err := c.Client.MGet(ctx, Key(date), versionKey(date), epochKey).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", Key(date)).Msg("availability cache read failed")
		return nil, "", false
	}
	version := counter(values[1]) + ":" + counter(values[2])

	data, ok := values[0].(string)
	if !ok {
		return nil, version, false
	}

	var records []dtos.StaffAvailability
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		log.Warn().Err(err).Str("key", Key(date)).Msg("discarding corrupt availability cache entry")
		return nil, version, false
	}
	return records, version, true
}

// Set stores records unless the date was invalidated since version was read.
func (c *RedisAvailabilityCache) Set(ctx context.Context, date time.Time, version string, records []dtos.StaffAvailability) {
	if version == "" {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode availability for cache")
		return
	}
	keys := []string{Key(date), versionKey(date), epochKey}
	stored, err := setIfCurrent.Run(ctx, c.Client, keys, version, data, c.TTL.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Str("key", Key(date)).Msg("availability cache write failed")
		return
	}
	if stored == 0 {
		log.Debug().Str("key", Key(date)).Msg("skipped stale availability cache write")
	}
}

// Invalidate advances each date's version and drops its entry.
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, dates ...time.Time) {
	if len(dates) == 0 {
		return
	}
	keys := make([]string, len(dates))
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, d := range dates {
			keys[i] = Key(d)
			pipe.Incr(ctx, versionKey(d))
			pipe.Expire(ctx, versionKey(d), versionTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("availability cache invalidation failed")
	}
}

// InvalidateAll advances the global epoch, which retires every version
// handed out so far, then removes the entries using SCAN, never KEYS.
func (c *RedisAvailabilityCache) InvalidateAll(ctx context.Context) {
	if err := c.Client.Incr(ctx, epochKey).Err(); err != nil {
		log.Warn().Err(err).Msg("availability cache epoch bump failed")
	}
	iter := c.Client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			c.Client.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.Client.Del(ctx, batch...)
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("availability cache flush failed")
	}
}
