// Package cache keeps fully-assembled 1m candle windows in Redis so
// repeated backtests and every optimization worker skip the SQLite
// assembly step.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"quantsim/internal/candle"
)

// defaultTTL keeps cached windows for a week; historical candles never
// change, the TTL only bounds memory.
const defaultTTL = 7 * 24 * time.Hour

// Cache is the Redis-backed candle window cache.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	log.Printf("[cache] connected to %s", cfg.Addr)
	return &Cache{client: client, ttl: ttl}, nil
}

// Client returns the underlying client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Key identifies one cached window.
func Key(exchange, symbol string, startMs, finishMs int64) string {
	return fmt.Sprintf("candles:%s:%s:%d:%d", exchange, symbol, startMs, finishMs)
}

// Get returns the cached window, or (nil, false) on a miss.
func (c *Cache) Get(ctx context.Context, exchange, symbol string, startMs, finishMs int64) ([]candle.Candle, bool) {
	raw, err := c.client.Get(ctx, Key(exchange, symbol, startMs, finishMs)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[cache] get failed: %v", err)
		}
		return nil, false
	}
	var out []candle.Candle
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("[cache] corrupt entry dropped: %v", err)
		c.client.Del(ctx, Key(exchange, symbol, startMs, finishMs))
		return nil, false
	}
	return out, true
}

// Put stores a window. Failures are logged, not returned; the cache is
// best-effort.
func (c *Cache) Put(ctx context.Context, exchange, symbol string, startMs, finishMs int64, candles []candle.Candle) {
	raw, err := json.Marshal(candles)
	if err != nil {
		log.Printf("[cache] marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, Key(exchange, symbol, startMs, finishMs), raw, c.ttl).Err(); err != nil {
		log.Printf("[cache] put failed: %v", err)
	}
}

// Close closes the connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
