package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurzen/roombot/internal/domain"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *RedisRoomCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisRoomCacheFromClient(client, "test:rooms")
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisRoomCache_SetGet(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	doc := domain.NewGuildRooms()
	doc.Add("100", domain.RoomKindChat, []string{"1", "2"})
	stale := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, doc.MarkStale("100", stale))

	key := c.BuildKeyByGuild("g1")
	assert.Equal(t, "test:rooms:guild:g1", key)
	require.NoError(t, c.Set(ctx, key, doc, time.Minute))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got.Channels["100"])
	require.NotNil(t, got.Meta["100"].StaleSince)
	assert.True(t, stale.Equal(*got.Meta["100"].StaleSince))
}

func TestRedisRoomCache_Miss(t *testing.T) {
	_, c := setupTestCache(t)

	_, err := c.Get(context.Background(), c.BuildKeyByGuild("missing"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisRoomCache_DeleteAndTTL(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	key := c.BuildKeyByGuild("g1")
	require.NoError(t, c.Set(ctx, key, domain.NewGuildRooms(), time.Minute))
	assert.True(t, mr.Exists(key))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(key))

	require.NoError(t, c.Set(ctx, key, domain.NewGuildRooms(), time.Minute))
	require.NoError(t, c.Delete(ctx, key))
	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Delete(ctx))
}
