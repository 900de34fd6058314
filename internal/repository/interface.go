package repository

import (
	"context"

	"github.com/aurzen/roombot/internal/domain"
)

// MutateFunc edits a guild's room document in place. Returning an error
// discards every change.
type MutateFunc func(doc *domain.GuildRooms) error

// RoomStore persists one room document per guild.
type RoomStore interface {
	// Get returns the guild's document, or an empty one if none was stored.
	Get(ctx context.Context, guildID string) (*domain.GuildRooms, error)
	// Mutate runs fn as an atomic read-modify-write and returns the result.
	Mutate(ctx context.Context, guildID string, fn MutateFunc) (*domain.GuildRooms, error)
	// Guilds lists guilds that have a stored document.
	Guilds(ctx context.Context) ([]string, error)
}
