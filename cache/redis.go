package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingPrefix namespaces cached public listings so admin writes can drop
// them together.
const ListingPrefix = "scrumble:list:"

type Options struct {
	URL       string
	ValkeyURL string
	Addr      string
	Username  string
	Password  string
}

// Connect builds a client from, in order of preference:
// - URL (Render internal Redis)
// - ValkeyURL (hosted Valkey, TLS via rediss://)
// - Addr, defaulting to localhost for docker-compose
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	var client *redis.Client
	switch {
	case opts.URL != "":
		opt, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client = redis.NewClient(opt)

	case opts.ValkeyURL != "":
		opt, err := redis.ParseURL(opts.ValkeyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse VALKEY_URL: %w", err)
		}
		client = redis.NewClient(opt)

	default:
		addr := opts.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
			Username: opts.Username,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis/valkey: %w", err)
	}
	return client, nil
}

// Cache is a thin JSON-bytes cache. A Cache without a client misses every
// read and drops every write, so callers never need to check for Redis.
type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get reports a miss with ok=false and a nil error.
func (c *Cache) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.Enabled() || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if !c.Enabled() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
