package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aurzen/roombot/internal/cache"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.GuildRoomsModel{}))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestGormRoomStore_GetEmpty(t *testing.T) {
	store := NewGormRoomStore(setupTestDB(t))

	doc, err := store.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())

	guilds, err := store.Guilds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, guilds)
}

func TestGormRoomStore_MutateAndGet(t *testing.T) {
	store := NewGormRoomStore(setupTestDB(t))
	ctx := context.Background()

	doc, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		doc.Add("100", domain.RoomKindChat, []string{"1", "2", "3"})
		return nil
	})
	require.NoError(t, err)
	assert.True(t, doc.Has("100"))

	_, err = store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		_, err := doc.RemoveMember("100", "2")
		return err
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, got.Channels["100"])

	_, err = store.Mutate(ctx, "g2", func(doc *domain.GuildRooms) error {
		doc.Add("200", domain.RoomKindModChat, []string{"9"})
		return nil
	})
	require.NoError(t, err)

	guilds, err := store.Guilds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, guilds)
}

func TestGormRoomStore_MutateErrorRollsBack(t *testing.T) {
	store := NewGormRoomStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		doc.Add("100", domain.RoomKindChat, []string{"1", "2"})
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		require.NoError(t, doc.Delete("100"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		_, err := doc.RemoveMember("404", "1")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, got.Has("100"))
}

func TestGormRoomStore_ConcurrentMutations(t *testing.T) {
	store := NewGormRoomStore(setupTestDB(t))
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
				doc.Add(fmt.Sprintf("room-%02d", i), domain.RoomKindChat, []string{"a", "b"})
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, n, got.Len())
}

func setupCachedStore(t *testing.T) (*miniredis.Miniredis, *CachedRoomStore, *cache.RedisRoomCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := cache.NewRedisRoomCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:rooms")
	t.Cleanup(func() { _ = rc.Close() })
	return mr, NewCachedRoomStore(NewGormRoomStore(setupTestDB(t)), rc, time.Minute), rc
}

func TestCachedRoomStore_ReadThroughAndInvalidate(t *testing.T) {
	mr, store, rc := setupCachedStore(t)
	ctx := context.Background()
	key := rc.BuildKeyByGuild("g1")

	_, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		doc.Add("100", domain.RoomKindChat, []string{"1", "2"})
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	doc, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, doc.Has("100"))
	assert.True(t, mr.Exists(key))

	_, err = store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		return doc.Delete("100")
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	doc, err = store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, doc.Has("100"))
}

func TestCachedRoomStore_ReturnsIndependentCopies(t *testing.T) {
	_, store, _ := setupCachedStore(t)
	ctx := context.Background()

	_, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		doc.Add("100", domain.RoomKindChat, []string{"1", "2"})
		return nil
	})
	require.NoError(t, err)

	first, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, first.Delete("100"))

	second, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, second.Has("100"))
}

func TestCachedRoomStore_FallsBackWhenCacheDown(t *testing.T) {
	mr, store, _ := setupCachedStore(t)
	ctx := context.Background()

	_, err := store.Mutate(ctx, "g1", func(doc *domain.GuildRooms) error {
		doc.Add("100", domain.RoomKindChat, []string{"1", "2"})
		return nil
	})
	require.NoError(t, err)

	mr.Close()

	doc, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, doc.Has("100"))
}
