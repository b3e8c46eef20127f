package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ume-client/config"

	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

var newRedisClient = func(opts *redis.Options) redisClient {
	return redis.NewClient(opts)
}

// ValkeyStore keeps session keys in Valkey (or Redis) under a prefix.
type ValkeyStore struct {
	client redisClient
	prefix string
}

func NewValkeyStore(ctx context.Context, cfg config.ValkeyConfig) (*ValkeyStore, error) {
	client := newRedisClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}

	return &ValkeyStore{client: client, prefix: cfg.Prefix}, nil
}

func (v *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := v.client.Get(ctx, v.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return value, true, nil
}

func (v *ValkeyStore) Set(ctx context.Context, key, value string) error {
	if err := v.client.Set(ctx, v.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (v *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, v.key(key)).Err(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

func (v *ValkeyStore) Close() error {
	return v.client.Close()
}

func (v *ValkeyStore) key(name string) string {
	if v.prefix == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", v.prefix, name)
}
