package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/pkg/database"
	"github.com/aurzen/roombot/pkg/log"
)

// GormRoomStore implements RoomStore using GORM.
type GormRoomStore struct {
	db *gorm.DB
}

// NewGormRoomStore creates a new GORM-based room store.
func NewGormRoomStore(db *gorm.DB) *GormRoomStore {
	return &GormRoomStore{db: db}
}

// Get retrieves the room document for a guild.
func (r *GormRoomStore) Get(ctx context.Context, guildID string) (*domain.GuildRooms, error) {
	l := log.Ctx(ctx)

	var model domain.GuildRoomsModel
	result := r.db.WithContext(ctx).First(&model, "guild_id = ?", guildID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return domain.NewGuildRooms(), nil
		}
		l.Error().Err(result.Error).Str(log.FieldGuildID, guildID).Msg("failed to get guild rooms")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Mutate locks the guild's row for the length of a transaction, applies fn
// and writes the document back. Dialects without row locks (sqlite)
// serialize writers on the database lock instead.
func (r *GormRoomStore) Mutate(ctx context.Context, guildID string, fn MutateFunc) (*domain.GuildRooms, error) {
	var out *domain.GuildRooms
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := domain.GuildRoomsToModel(guildID, domain.NewGuildRooms())
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		var model domain.GuildRoomsModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "guild_id = ?", guildID).Error; err != nil {
			return err
		}

		doc := model.ToDomain()
		if err := fn(doc); err != nil {
			return err
		}

		model.Document = database.NewJSON(*doc.Clone())
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		if !domain.IsDomainError(err) {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("failed to mutate guild rooms")
		}
		return nil, err
	}
	return out, nil
}

// Guilds lists every guild with a stored document.
func (r *GormRoomStore) Guilds(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.GuildRoomsModel{}).
		Order("guild_id").Pluck("guild_id", &ids).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list guilds")
		return nil, err
	}
	return ids, nil
}
