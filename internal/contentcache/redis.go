package contentcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "synthpop:desc:"

// RedisTier keeps descriptions in Redis without expiry so they survive
// restarts of the process.
type RedisTier struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTier(client redis.UniversalClient, prefix string) *RedisTier {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisTier{client: client, prefix: prefix}
}

// NewRedisTierFromURL parses a redis:// URL and builds a tier on it.
func NewRedisTierFromURL(url string) (*RedisTier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisTier(redis.NewClient(opts), ""), nil
}

func (t *RedisTier) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := t.client.Get(ctx, t.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (t *RedisTier) Set(ctx context.Context, key, value string) error {
	if err := t.client.Set(ctx, t.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (t *RedisTier) Close() error {
	return t.client.Close()
}
