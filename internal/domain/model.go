package domain

import (
	"time"

	"github.com/aurzen/roombot/pkg/database"
)

// GuildRoomsModel is the GORM model for the per-community room document.
type GuildRoomsModel struct {
	GuildID   string                    `gorm:"type:varchar(32);primaryKey"`
	Document  database.JSON[GuildRooms] `gorm:"type:text;not null"`
	UpdatedAt time.Time                 `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GuildRoomsModel.
func (GuildRoomsModel) TableName() string {
	return "guild_rooms"
}

// ToDomain returns a copy of the stored document, never nil.
func (m *GuildRoomsModel) ToDomain() *GuildRooms {
	return m.Document.Data.Clone()
}

// GuildRoomsToModel converts a document to its row.
func GuildRoomsToModel(guildID string, doc *GuildRooms) *GuildRoomsModel {
	return &GuildRoomsModel{
		GuildID:  guildID,
		Document: database.NewJSON(*doc.Clone()),
	}
}
