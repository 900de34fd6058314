// Package platform is the port to the chat platform. The bot never talks to
// the platform SDK directly; it goes through Platform so the room lifecycle
// can be exercised against the in-memory fake in platformtest.
package platform

import (
	"context"

	"github.com/aurzen/roombot/internal/permission"
)

// Channel is the subset of a platform text channel the bot reads.
type Channel struct {
	ID         string
	GuildID    string
	Name       string
	Topic      string
	Overwrites []permission.Overwrite
}

// Member is a guild member.
type Member struct {
	ID   string
	Name string
}

// Mention renders the platform mention syntax for an account.
func (m Member) Mention() string {
	return MentionUser(m.ID)
}

// MentionUser renders a user mention.
func MentionUser(id string) string {
	return "<@" + id + ">"
}

// MentionRole renders a role mention.
func MentionRole(id string) string {
	return "<@&" + id + ">"
}

// MentionChannel renders a channel link.
func MentionChannel(id string) string {
	return "<#" + id + ">"
}

// Platform is everything the room lifecycle consumes from the chat platform.
// Failures are returned as *Error; a missing object wraps ErrNotFound.
type Platform interface {
	// BotID is the bot's own account id.
	BotID() string
	// EveryoneRoleID is the guild's default role.
	EveryoneRoleID(guildID string) string
	// Guilds lists the communities the bot is in.
	Guilds(ctx context.Context) ([]string, error)
	// Member resolves an account in a guild.
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	// ModeratorRoles lists roles holding the ban-members or manage-guild capability.
	ModeratorRoles(ctx context.Context, guildID string) ([]string, error)

	// CreateChannel creates a text channel with the given overwrites in place.
	CreateChannel(ctx context.Context, guildID, name string, overwrites []permission.Overwrite) (*Channel, error)
	// Channel fetches a channel with its live overwrites.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	// DeleteChannel deletes a channel.
	DeleteChannel(ctx context.Context, channelID, reason string) error
	// SetOverwrite applies one overwrite; Inherit removes it.
	SetOverwrite(ctx context.Context, channelID string, ow permission.Overwrite) error
	// SetTopic edits the channel topic.
	SetTopic(ctx context.Context, channelID, topic, reason string) error
	// SendMessage posts a message to a channel.
	SendMessage(ctx context.Context, channelID, content string) error
}
