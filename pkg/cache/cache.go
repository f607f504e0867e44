// Package cache wraps a redis client with the small typed surface the
// server needs: string, JSON and big-endian integer values with a shared
// default expiry.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL is applied when a setter is called with a zero expiry.
const DefaultTTL = 2 * time.Hour

// ErrMiss reports an absent key.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	rdb redis.Cmdable
}

// New wraps an existing redis client. Tests pass a redismock client.
func New(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb}
}

// Dial connects to redis and wraps the connection.
func Dial(addr, password string, db int) *Cache {
	return New(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	return val, err
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// GetJSON unmarshals the cached value into dst. ErrMiss on an absent key.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetInt reads a big-endian 8-byte integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.New("cache: integer value is not 8 bytes")
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

func (c *Cache) SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value))
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return c.rdb.Set(ctx, key, buf[:], ttl).Err()
}
