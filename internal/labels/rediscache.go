package labels

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	cacheKeyPrefix = "solcloak:label:"
	cacheNegative  = "-" // cached "address has no label"
	cacheTTL       = 15 * time.Minute
)

// RedisCache is a read-through cache in front of another Provider. A miss in
// the underlying provider is cached too, so hot unlabeled addresses do not
// hammer the database on every scan.
type RedisCache struct {
	rdb  *redis.Client
	next Provider
}

// NewRedisCache wraps next with a Redis read-through cache.
func NewRedisCache(rdb *redis.Client, next Provider) *RedisCache {
	return &RedisCache{rdb: rdb, next: next}
}

func (c *RedisCache) Lookup(ctx context.Context, address string) (*Label, error) {
	val, err := c.rdb.Get(ctx, cacheKeyPrefix+address).Result()
	if err == nil {
		if val == cacheNegative {
			return nil, nil
		}
		var l Label
		if json.Unmarshal([]byte(val), &l) == nil {
			return &l, nil
		}
		// Corrupt entry: fall through to the source.
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not fail the scan; go straight to source.
		return c.next.Lookup(ctx, address)
	}

	l, err := c.next.Lookup(ctx, address)
	if err != nil {
		return nil, err
	}
	c.put(ctx, address, l)
	return l, nil
}

func (c *RedisCache) LookupMany(ctx context.Context, addresses []string) (map[string]*Label, error) {
	result := make(map[string]*Label)
	var misses []string

	for _, addr := range addresses {
		val, err := c.rdb.Get(ctx, cacheKeyPrefix+addr).Result()
		if err != nil {
			misses = append(misses, addr)
			continue
		}
		if val == cacheNegative {
			continue
		}
		var l Label
		if json.Unmarshal([]byte(val), &l) == nil {
			result[addr] = &l
		} else {
			misses = append(misses, addr)
		}
	}

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.next.LookupMany(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, addr := range misses {
		l := fetched[addr]
		c.put(ctx, addr, l)
		if l != nil {
			result[addr] = l
		}
	}
	return result, nil
}

func (c *RedisCache) put(ctx context.Context, address string, l *Label) {
	if l == nil {
		_ = c.rdb.Set(ctx, cacheKeyPrefix+address, cacheNegative, cacheTTL).Err()
		return
	}
	data, err := json.Marshal(l)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKeyPrefix+address, data, cacheTTL).Err()
}
