// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package cache keeps extraction results for a while, in memory or
// in redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"codeberg.org/readeck/metaextract/configs"
)

// Cache stores JSON values under a key derived from their input.
// A nil *Cache is valid and never holds anything.
type Cache struct {
	store Store
	ttl   time.Duration
}

// New returns a cache using the given store.
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// FromConfig returns the cache of the configuration. It's nil when
// the cache is disabled.
func FromConfig() (*Cache, error) {
	ttl := configs.Config.Cache.TTL.Duration()

	switch configs.Config.Cache.Backend {
	case configs.CacheMemory:
		return New(NewMemStore(), ttl), nil
	case configs.CacheRedis:
		opts, err := redis.ParseURL(configs.Config.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return New(NewRedisStore(redis.NewClient(opts), "metaextract"), ttl), nil
	}
	return nil, nil
}

// Key returns a SHA-256 based key of some input parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SetJSON stores a value as a JSON string.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, string(data), c.ttl)
}

// GetJSON loads a value stored as a JSON string. It returns false
// when the key is not in the store.
func (c *Cache) GetJSON(ctx context.Context, key string, value any) (bool, error) {
	if c == nil {
		return false, nil
	}
	data, err := c.store.Get(ctx, key)
	if err != nil || data == "" {
		return false, err
	}

	return true, json.Unmarshal([]byte(data), value)
}

// Del removes a key.
func (c *Cache) Del(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.store.Del(ctx, key)
}
