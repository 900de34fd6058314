package cache

import (
	"context"
	"time"

	"github.com/aurzen/roombot/internal/domain"
)

// RoomCache stores per-guild room documents.
type RoomCache interface {
	Get(ctx context.Context, key string) (*domain.GuildRooms, error)
	Set(ctx context.Context, key string, doc *domain.GuildRooms, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByGuild(guildID string) string
	Close() error
}
