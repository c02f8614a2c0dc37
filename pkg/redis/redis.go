package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings for the conversation store.
// Timeouts are in seconds.
type Config struct {
	URL          string `split_words:"true" required:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

// New builds a client from the URL, applies the configured timeouts and
// verifies connectivity with a ping before returning.
func (c *Config) New(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ReadTimeout = time.Duration(c.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(c.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(c.DialTimeout) * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
