package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aurzen/roombot/internal/cache"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/pkg/log"
)

// CachedRoomStore is a read-through cache in front of another RoomStore.
// Writes always go to the backing store and invalidate the cached copy.
type CachedRoomStore struct {
	store    RoomStore
	cache    cache.RoomCache
	cacheTTL time.Duration
	sf       singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

// NewCachedRoomStore wraps store with roomCache.
func NewCachedRoomStore(store RoomStore, roomCache cache.RoomCache, cacheTTL time.Duration) *CachedRoomStore {
	return &CachedRoomStore{
		store:    store,
		cache:    roomCache,
		cacheTTL: cacheTTL,
		gen:      make(map[string]uint64),
	}
}

func (s *CachedRoomStore) Get(ctx context.Context, guildID string) (*domain.GuildRooms, error) {
	key := s.cache.BuildKeyByGuild(guildID)

	// Use singleflight to prevent duplicate loads for the same guild
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.fetchWithCache(ctx, guildID, key)
	})
	if err != nil {
		return nil, err
	}

	doc, ok := result.(*domain.GuildRooms)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	// Callers may mutate what they get; shared results must not leak.
	return doc.Clone(), nil
}

func (s *CachedRoomStore) fetchWithCache(ctx context.Context, guildID, key string) (*domain.GuildRooms, error) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldGuildID, guildID).Msg("cache get error")
	}

	gen := s.generation(key)
	doc, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	// A write that landed while we were loading makes doc stale.
	if s.generation(key) != gen {
		return doc, nil
	}
	l := log.Ctx(ctx)
	if err := s.cache.Set(ctx, key, doc, s.cacheTTL); err != nil {
		l.Warn().Err(err).Str(log.FieldGuildID, guildID).Msg("cache set error")
		return doc, nil
	}
	// Lost a race with a write between the check and the set.
	if s.generation(key) != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			l.Warn().Err(err).Str(log.FieldGuildID, guildID).Msg("cache invalidate error")
		}
	}
	return doc, nil
}

func (s *CachedRoomStore) Mutate(ctx context.Context, guildID string, fn MutateFunc) (*domain.GuildRooms, error) {
	key := s.cache.BuildKeyByGuild(guildID)

	doc, err := s.store.Mutate(ctx, guildID, fn)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.gen[key]++
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, key); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldGuildID, guildID).Msg("cache invalidate error")
	}
	return doc, nil
}

func (s *CachedRoomStore) Guilds(ctx context.Context) ([]string, error) {
	return s.store.Guilds(ctx)
}

func (s *CachedRoomStore) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[key]
}
