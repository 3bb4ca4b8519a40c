// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/clouds/internal/platform/constants"
	redisclient "github.com/taibuivan/clouds/internal/platform/redis"
)

// Redis is a [Store] shared through a Redis instance.
// Keys are namespaced with [constants.RedisPrefixClient].
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and validates the connection.
func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*Redis, error) {
	client, err := redisclient.NewClient(ctx, redisURL, logger)
	if err != nil {
		return nil, err
	}
	return NewRedisFromClient(client, constants.RedisPrefixClient), nil
}

// NewRedisFromClient wraps an existing client. Tests use a distinct prefix per run.
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv/redis: get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("kv/redis: set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = r.key(key)
	}

	if err := r.client.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("kv/redis: delete: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
