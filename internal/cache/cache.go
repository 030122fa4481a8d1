// Package cache keeps finished enrichment results in redis, keyed by the
// contact identity, so repeat lookups skip the provider cascade.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultTTL is how long a cached result is served.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "enrich:result:"

// Config holds the redis connection settings.
type Config struct {
	Addr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	PoolSize int           `yaml:"pool_size" mapstructure:"pool_size"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Cache is a redis-backed result cache.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redis and pings it.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "cache: connect %s", cfg.Addr)
	}
	return NewFromClient(rdb, cfg.TTL), nil
}

// NewFromClient wraps an existing client. A non-positive ttl uses DefaultTTL.
func NewFromClient(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// TTL returns the expiry applied by Set when none is given.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func key(contact model.ContactInput) string {
	return keyPrefix + contact.Key()
}

// Get returns the cached result for contact, or nil on a miss.
func (c *Cache) Get(ctx context.Context, contact model.ContactInput) (*model.EnrichmentResult, error) {
	data, err := c.rdb.Get(ctx, key(contact)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: get")
	}
	var result model.EnrichmentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrap(err, "cache: decode result")
	}
	return &result, nil
}

// Set stores result for contact. A non-positive ttl uses the cache default.
func (c *Cache) Set(ctx context.Context, contact model.ContactInput, result *model.EnrichmentResult, ttl time.Duration) error {
	if result == nil {
		return eris.New("cache: nil result")
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "cache: encode result")
	}
	return eris.Wrap(c.rdb.Set(ctx, key(contact), data, ttl).Err(), "cache: set")
}

// Delete evicts the cached result for contact.
func (c *Cache) Delete(ctx context.Context, contact model.ContactInput) error {
	return eris.Wrap(c.rdb.Del(ctx, key(contact)).Err(), "cache: delete")
}
