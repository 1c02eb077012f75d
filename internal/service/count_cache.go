package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	countCacheKey           = "guestbook:messages:count"
	countCacheGenerationKey = "guestbook:messages:count:gen"
)

// CountCache guarda el total de mensajes para no contar en cada request.
// Cada insert avanza la generacion; Set solo escribe si la generacion sigue
// siendo la que devolvio Get, asi un conteo leido antes de un insert no
// pisa la invalidacion.
type CountCache interface {
	Get(ctx context.Context) (n int64, gen int64, hit bool, err error)
	Set(ctx context.Context, n int64, gen int64) error
	Invalidate(ctx context.Context) error
}

type noopCountCache struct{}

func NewNoopCountCache() CountCache {
	return noopCountCache{}
}

func (noopCountCache) Get(context.Context) (int64, int64, bool, error) { return 0, 0, false, nil }
func (noopCountCache) Set(context.Context, int64, int64) error         { return nil }
func (noopCountCache) Invalidate(context.Context) error                { return nil }

type redisCountClient interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// KEYS[1]=count KEYS[2]=gen ARGV[1]=n ARGV[2]=gen ARGV[3]=ttl ms
const setIfGenerationScript = `
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current ~= tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`

// KEYS[1]=count KEYS[2]=gen
const invalidateScript = `
redis.call('INCR', KEYS[2])
redis.call('DEL', KEYS[1])
return 1
`

type redisCountCache struct {
	client redisCountClient
	ttl    time.Duration
}

func NewRedisCountCache(client redisCountClient, ttl time.Duration) CountCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisCountCache{client: client, ttl: ttl}
}

func (c *redisCountCache) Get(ctx context.Context) (int64, int64, bool, error) {
	vals, err := c.client.MGet(ctx, countCacheKey, countCacheGenerationKey).Result()
	if err != nil {
		return 0, 0, false, err
	}

	gen, _, err := parseCountValue(vals[1])
	if err != nil {
		return 0, 0, false, fmt.Errorf("count generation: %w", err)
	}
	n, hit, err := parseCountValue(vals[0])
	if err != nil {
		return 0, 0, false, fmt.Errorf("count value: %w", err)
	}
	return n, gen, hit, nil
}

func (c *redisCountCache) Set(ctx context.Context, n int64, gen int64) error {
	keys := []string{countCacheKey, countCacheGenerationKey}
	return c.client.Eval(ctx, setIfGenerationScript, keys, n, gen, c.ttl.Milliseconds()).Err()
}

func (c *redisCountCache) Invalidate(ctx context.Context) error {
	keys := []string{countCacheKey, countCacheGenerationKey}
	return c.client.Eval(ctx, invalidateScript, keys).Err()
}

func parseCountValue(v interface{}) (int64, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, false, fmt.Errorf("unexpected type %T", v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
