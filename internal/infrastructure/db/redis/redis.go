package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config holds the connection settings for the session and view stores.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// Connect opens a client and fails fast when Redis does not answer a ping.
// Sessions and screen state live only in Redis, so the server cannot start
// without it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := Ping(ctx, client, cfg.Timeout); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping checks connectivity within timeout (pingTimeout when zero).
func Ping(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = pingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Checker adapts a client to the readiness probe.
type Checker struct {
	client *redis.Client
}

func NewChecker(client *redis.Client) Checker {
	return Checker{client: client}
}

func (c Checker) Name() string { return "redis" }

func (c Checker) Check(ctx context.Context) error {
	return Ping(ctx, c.client, 0)
}
