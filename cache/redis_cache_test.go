package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagRow struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "stores:", time.Minute), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	want := []tagRow{{Tag: "wifi", Count: 3}, {Tag: "coffee", Count: 1}}
	require.NoError(t, c.SetJSON(ctx, "tags", want))

	assert.True(t, mr.Exists("stores:tags"))
	assert.Equal(t, time.Minute, mr.TTL("stores:tags"))

	var got []tagRow
	require.NoError(t, c.GetJSON(ctx, "tags", &got))
	assert.Equal(t, want, got)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupCache(t)

	var got []tagRow
	err := c.GetJSON(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "top", []string{"a"}))
	mr.FastForward(2 * time.Minute)

	var got []string
	assert.ErrorIs(t, c.GetJSON(ctx, "top", &got), ErrMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "tags", 1))
	require.NoError(t, c.SetJSON(ctx, "top", 2))
	require.NoError(t, c.Delete(ctx, "tags", "top"))

	assert.False(t, mr.Exists("stores:tags"))
	assert.False(t, mr.Exists("stores:top"))
	assert.NoError(t, c.Delete(ctx))
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	var got []string
	err := c.GetJSON(context.Background(), "tags", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, c.Ping(context.Background()))
}
