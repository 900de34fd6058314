// Package discord implements platform.Platform on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/aurzen/roombot/internal/permission"
	"github.com/aurzen/roombot/internal/platform"
)

// Compile-time interface check.
var _ platform.Platform = (*Client)(nil)

// Options configures the Discord client.
type Options struct {
	Token          string
	RequestTimeout time.Duration
	// ExtraModeratorRoles are role ids treated as moderator roles in any
	// guild where they exist.
	ExtraModeratorRoles []string
}

// Client is a Discord gateway session plus REST calls.
type Client struct {
	session   *discordgo.Session
	timeout   time.Duration
	extraMods []string
}

// New creates a client. Call Open to connect.
func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("discord token is required")
	}

	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	session.StateEnabled = true

	installLogger(session)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		session:   session,
		timeout:   timeout,
		extraMods: slices.Clone(opts.ExtraModeratorRoles),
	}, nil
}

// Open connects to the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) opts(ctx context.Context, reason string) ([]discordgo.RequestOption, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts, cancel
}

func (c *Client) BotID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

// EveryoneRoleID returns the guild id, which Discord uses for @everyone.
func (c *Client) EveryoneRoleID(guildID string) string {
	return guildID
}

func (c *Client) Guilds(context.Context) ([]string, error) {
	state := c.session.State
	state.RLock()
	defer state.RUnlock()

	ids := make([]string, 0, len(state.Guilds))
	for _, g := range state.Guilds {
		ids = append(ids, g.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	m, err := c.session.GuildMember(guildID, userID, opts...)
	if err != nil {
		return nil, wrapError("Member", userID, err)
	}
	if m.User == nil {
		return nil, &platform.Error{Op: "Member", ID: userID, Err: platform.ErrNotFound}
	}
	return &platform.Member{ID: m.User.ID, Name: m.User.Username}, nil
}

func (c *Client) ModeratorRoles(ctx context.Context, guildID string) ([]string, error) {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	roles, err := c.session.GuildRoles(guildID, opts...)
	if err != nil {
		return nil, wrapError("ModeratorRoles", guildID, err)
	}

	var ids []string
	for _, r := range roles {
		if r.ID == guildID {
			continue
		}
		if isModeratorRole(r) || slices.Contains(c.extraMods, r.ID) {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) CreateChannel(ctx context.Context, guildID, name string, overwrites []permission.Overwrite) (*platform.Channel, error) {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	data := discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildText,
	}
	for _, ow := range overwrites {
		if ow.Access == permission.Inherit {
			continue
		}
		data.PermissionOverwrites = append(data.PermissionOverwrites, fromOverwrite(ow))
	}

	ch, err := c.session.GuildChannelCreateComplex(guildID, data, opts...)
	if err != nil {
		return nil, wrapError("CreateChannel", guildID, err)
	}
	return toChannel(ch), nil
}

func (c *Client) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	ch, err := c.session.Channel(channelID, opts...)
	if err != nil {
		return nil, wrapError("Channel", channelID, err)
	}
	return toChannel(ch), nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	opts, cancel := c.opts(ctx, reason)
	defer cancel()

	_, err := c.session.ChannelDelete(channelID, opts...)
	return wrapError("DeleteChannel", channelID, err)
}

func (c *Client) SetOverwrite(ctx context.Context, channelID string, ow permission.Overwrite) error {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	if ow.Access == permission.Inherit {
		err := c.session.ChannelPermissionDelete(channelID, ow.Target.ID, opts...)
		if isUnknownOverwrite(err) {
			return nil
		}
		return wrapError("SetOverwrite", channelID, err)
	}

	allow, deny := accessBits(ow.Access)
	err := c.session.ChannelPermissionSet(channelID, ow.Target.ID, overwriteType(ow.Target), allow, deny, opts...)
	return wrapError("SetOverwrite", channelID, err)
}

func (c *Client) SetTopic(ctx context.Context, channelID, topic, reason string) error {
	opts, cancel := c.opts(ctx, reason)
	defer cancel()

	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Topic: topic}, opts...)
	return wrapError("SetTopic", channelID, err)
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	opts, cancel := c.opts(ctx, "")
	defer cancel()

	_, err := c.session.ChannelMessageSend(channelID, content, opts...)
	return wrapError("SendMessage", channelID, err)
}

func toChannel(ch *discordgo.Channel) *platform.Channel {
	out := &platform.Channel{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
		Topic:   ch.Topic,
	}
	for _, ow := range ch.PermissionOverwrites {
		out.Overwrites = append(out.Overwrites, toOverwrite(ow))
	}
	return out
}

func isUnknownOverwrite(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownOverwrite
}
