// Package redis claims webhook delivery ids with SET NX so replicas share them.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

type claimer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Guard implements fitment.DeliveryGuard over Redis.
type Guard struct {
	rdb    claimer
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// New dials Redis, verifies it with PING and returns a Guard.
func New(ctx context.Context, opts Options) (*Guard, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	g := newGuard(rdb, opts)
	g.client = rdb
	return g, nil
}

func newGuard(rdb claimer, opts Options) *Guard {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ymm:delivery:"
	}
	return &Guard{rdb: rdb, ttl: opts.TTL, prefix: prefix}
}

// Claim reports true when this call stored the delivery id.
func (g *Guard) Claim(ctx context.Context, deliveryID string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, g.prefix+deliveryID, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim delivery %s: %w", deliveryID, err)
	}
	return ok, nil
}

// Release deletes the claim for deliveryID.
func (g *Guard) Release(ctx context.Context, deliveryID string) error {
	if err := g.rdb.Del(ctx, g.prefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("release delivery %s: %w", deliveryID, err)
	}
	return nil
}

// Ping checks connectivity.
func (g *Guard) Ping(ctx context.Context) error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (g *Guard) Close() error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
