package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aurzen/roombot/internal/command"
	"github.com/aurzen/roombot/pkg/log"
)

// Dispatcher handles incoming guild messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *command.Message) bool
}

// HandleMessages feeds every created message to d. The returned func
// removes the handler.
func (c *Client) HandleMessages(d Dispatcher) func() {
	return c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		msg := toMessage(m)
		if msg == nil {
			return
		}
		d.Dispatch(eventContext(), msg)
	})
}

// OnReady calls fn each time the gateway session becomes ready.
func (c *Client) OnReady(fn func()) func() {
	return c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		l := log.L()
		l.Info().
			Str(log.FieldUserID, r.User.ID).
			Int("guilds", len(r.Guilds)).
			Msg("discord session ready")
		fn()
	})
}

func toMessage(m *discordgo.MessageCreate) *command.Message {
	if m == nil || m.Message == nil || m.Author == nil {
		return nil
	}
	return &command.Message{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
	}
}

func eventContext() context.Context {
	l := log.L()
	return log.WithLogger(context.Background(), l.With().Str("source", "discord").Logger())
}
