package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSlots maps each slot onto a plain Redis string key
type RedisSlots struct {
	client *redis.Client
	prefix string
}

var _ SlotStore = (*RedisSlots)(nil)

func NewRedisSlots(ctx context.Context, addr, password string, database int, prefix string) (*RedisSlots, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisSlots{client: c, prefix: prefix}, nil
}

func (s *RedisSlots) key(name string) string {
	return s.prefix + name
}

func (s *RedisSlots) Get(ctx context.Context, name string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisSlots) Put(ctx context.Context, name string, value []byte) error {
	return s.client.Set(ctx, s.key(name), value, 0).Err()
}

func (s *RedisSlots) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}

func (s *RedisSlots) Close() error { return s.client.Close() }
