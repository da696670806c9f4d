// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/cache"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemStore(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	s := cache.NewMemStore()

	v, err := s.Get(ctx, "a")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(s.Set(ctx, "a", "1", 0))
	assert.NoError(s.Set(ctx, "b", "2", 20*time.Millisecond))
	assert.Equal(2, s.Len())

	v, _ = s.Get(ctx, "b")
	assert.Equal("2", v)

	assert.Eventually(func() bool {
		v, _ := s.Get(ctx, "b")
		return v == ""
	}, time.Second, 10*time.Millisecond)
	assert.Equal(1, s.Len())

	assert.NoError(s.Del(ctx, "a"))
	assert.Equal(0, s.Len())
}

func TestCache(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	c := cache.New(cache.NewMemStore(), time.Minute)

	key := cache.Key("<p>html</p>", "https://x.test/")
	assert.Len(key, 64)
	assert.NotEqual(key, cache.Key("<p>html</p>https://x.test/"))
	assert.Equal(key, cache.Key("<p>html</p>", "https://x.test/"))

	var res item
	ok, err := c.GetJSON(ctx, key, &res)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(c.SetJSON(ctx, key, item{"a", 2}))
	ok, err = c.GetJSON(ctx, key, &res)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(item{"a", 2}, res)

	assert.NoError(c.Del(ctx, key))
	ok, _ = c.GetJSON(ctx, key, &res)
	assert.False(ok)
}

func TestNilCache(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	var c *cache.Cache

	assert.NoError(c.SetJSON(ctx, "a", 1))
	var v int
	ok, err := c.GetJSON(ctx, "a", &v)
	assert.NoError(err)
	assert.False(ok)
	assert.NoError(c.Del(ctx, "a"))
}

func TestFromConfig(t *testing.T) {
	configs.InitConfiguration()
	t.Cleanup(configs.InitConfiguration)
	assert := require.New(t)

	c, err := cache.FromConfig()
	assert.NoError(err)
	assert.Nil(c)

	configs.Config.Cache.Backend = configs.CacheMemory
	c, err = cache.FromConfig()
	assert.NoError(err)
	assert.NotNil(c)

	configs.Config.Cache.Backend = configs.CacheRedis
	configs.Config.Cache.RedisURL = "redis://localhost:6379/0"
	c, err = cache.FromConfig()
	assert.NoError(err)
	assert.NotNil(c)

	configs.Config.Cache.RedisURL = "http://nope"
	_, err = cache.FromConfig()
	assert.Error(err)
}
