// SPDX-FileCopyrightText: © 2021 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is a very basic key/value store.
type Store interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, string, time.Duration) error
	Del(context.Context, string) error
}

// RedisStore implements Store with redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore instance. The prefix is used for each
// key operation.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
	}
}

// key returns a keys with the given namespace prefix.
func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get returns a value for the given key. Returns an empty string when the
// value does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return res, err
}

// Set insert or replace the value for the given key.
func (s *RedisStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, expiration).Err()
}

// Del removes the given key.
func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

// MemStore is a Store implementation using a simple in memory map.
type MemStore struct {
	sync.RWMutex
	data   map[string]string
	timers map[string]*time.Timer
}

// NewMemStore returns a MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data:   make(map[string]string),
		timers: make(map[string]*time.Timer),
	}
}

// Get returns a value for the given key. Returns an empty string when the
// value does not exist.
func (s *MemStore) Get(_ context.Context, key string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	return s.data[key], nil
}

// Set insert or replace the value for the given key.
func (s *MemStore) Set(_ context.Context, key, value string, expiration time.Duration) error {
	s.Lock()
	defer s.Unlock()
	s.data[key] = value

	// No expiration removes an existing timer.
	if t, ok := s.timers[key]; ok && expiration == 0 {
		t.Stop()
		delete(s.timers, key)
	}

	if expiration > 0 {
		if t, ok := s.timers[key]; ok {
			t.Reset(expiration)
		} else {
			s.timers[key] = time.AfterFunc(expiration, func() {
				s.Lock()
				defer s.Unlock()
				delete(s.data, key)
				delete(s.timers, key)
			})
		}
	}

	return nil
}

// Del removes the given key.
func (s *MemStore) Del(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	delete(s.data, key)
	return nil
}

// Len returns the number of entries.
func (s *MemStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.data)
}
