// Package platformtest provides an in-memory chat platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aurzen/roombot/internal/permission"
	"github.com/aurzen/roombot/internal/platform"
)

// Compile-time interface check.
var _ platform.Platform = (*Fake)(nil)

type guild struct {
	members  map[string]string // id → name
	modRoles []string
	channels map[string]struct{}
}

type channel struct {
	guildID    string
	name       string
	topic      string
	overwrites map[permission.Target]permission.Access
	order      []permission.Target
}

// Fake is a thread-safe in-memory Platform.
type Fake struct {
	mu       sync.Mutex
	botID    string
	nextID   int
	guilds   map[string]*guild
	channels map[string]*channel
	messages map[string][]string
	failures map[string]error
	calls    map[string]int
}

// New creates a fake platform whose bot account is botID.
func New(botID string) *Fake {
	return &Fake{
		botID:    botID,
		nextID:   1000,
		guilds:   make(map[string]*guild),
		channels: make(map[string]*channel),
		messages: make(map[string][]string),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddGuild registers a guild with the given members (id → name).
func (f *Fake) AddGuild(guildID string, members map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g := &guild{members: make(map[string]string), channels: make(map[string]struct{})}
	for id, name := range members {
		g.members[id] = name
	}
	f.guilds[guildID] = g
}

// AddModeratorRole marks roleID as holding moderator capability in guildID.
func (f *Fake) AddModeratorRole(guildID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guilds[guildID].modRoles = append(f.guilds[guildID].modRoles, roleID)
}

// AddChannel creates a channel directly, bypassing CreateChannel.
func (f *Fake) AddChannel(guildID, channelID, name string, overwrites ...permission.Overwrite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addChannelLocked(guildID, channelID, name, overwrites)
}

func (f *Fake) addChannelLocked(guildID, channelID, name string, overwrites []permission.Overwrite) {
	ch := &channel{
		guildID:    guildID,
		name:       name,
		overwrites: make(map[permission.Target]permission.Access),
	}
	for _, ow := range overwrites {
		ch.set(ow)
	}
	f.channels[channelID] = ch
	if g, ok := f.guilds[guildID]; ok {
		g.channels[channelID] = struct{}{}
	}
}

// Vanish removes a channel as if it had been deleted outside the bot.
func (f *Fake) Vanish(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

// FailOn makes every call to op return err until cleared with a nil err.
// Ops are the Platform method names, e.g. "DeleteChannel".
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Exists reports whether the channel is present.
func (f *Fake) Exists(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}

// Overwrite returns the live access for target on channelID.
func (f *Fake) Overwrite(channelID string, target permission.Target) permission.Access {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return permission.Inherit
	}
	return ch.overwrites[target]
}

// Topic returns the channel topic.
func (f *Fake) Topic(channelID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[channelID]; ok {
		return ch.topic
	}
	return ""
}

// Messages returns everything sent to channelID.
func (f *Fake) Messages(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages[channelID]...)
}

// ChannelIDs returns the ids of existing channels in a guild, sorted.
func (f *Fake) ChannelIDs(guildID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, ch := range f.channels {
		if ch.guildID == guildID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (f *Fake) enter(op string) error {
	f.calls[op]++
	if err, ok := f.failures[op]; ok {
		return platform.Wrap(op, "", err)
	}
	return nil
}

func (f *Fake) BotID() string { return f.botID }

// EveryoneRoleID follows the Discord convention: the default role shares
// the guild id.
func (f *Fake) EveryoneRoleID(guildID string) string { return guildID }

func (f *Fake) Guilds(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Guilds"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(f.guilds))
	for id := range f.guilds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *Fake) Member(_ context.Context, guildID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Member"); err != nil {
		return nil, err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, platform.Wrap("Member", guildID, platform.ErrNotFound)
	}
	name, ok := g.members[userID]
	if !ok {
		return nil, platform.Wrap("Member", userID, platform.ErrNotFound)
	}
	return &platform.Member{ID: userID, Name: name}, nil
}

func (f *Fake) ModeratorRoles(_ context.Context, guildID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ModeratorRoles"); err != nil {
		return nil, err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, platform.Wrap("ModeratorRoles", guildID, platform.ErrNotFound)
	}
	return append([]string(nil), g.modRoles...), nil
}

func (f *Fake) CreateChannel(_ context.Context, guildID, name string, overwrites []permission.Overwrite) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateChannel"); err != nil {
		return nil, err
	}
	if _, ok := f.guilds[guildID]; !ok {
		return nil, platform.Wrap("CreateChannel", guildID, platform.ErrNotFound)
	}
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.addChannelLocked(guildID, id, name, overwrites)
	return f.snapshot(id), nil
}

func (f *Fake) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Channel"); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, platform.Wrap("Channel", channelID, platform.ErrNotFound)
	}
	return f.snapshot(channelID), nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.Wrap("DeleteChannel", channelID, platform.ErrNotFound)
	}
	delete(f.channels, channelID)
	return nil
}

func (f *Fake) SetOverwrite(_ context.Context, channelID string, ow permission.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SetOverwrite"); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.Wrap("SetOverwrite", channelID, platform.ErrNotFound)
	}
	ch.set(ow)
	return nil
}

func (f *Fake) SetTopic(_ context.Context, channelID, topic, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SetTopic"); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.Wrap("SetTopic", channelID, platform.ErrNotFound)
	}
	ch.topic = topic
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SendMessage"); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.Wrap("SendMessage", channelID, platform.ErrNotFound)
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return nil
}

func (f *Fake) snapshot(id string) *platform.Channel {
	ch := f.channels[id]
	out := &platform.Channel{
		ID:      id,
		GuildID: ch.guildID,
		Name:    ch.name,
		Topic:   ch.topic,
	}
	for _, t := range ch.order {
		if a, ok := ch.overwrites[t]; ok {
			out.Overwrites = append(out.Overwrites, permission.Overwrite{Target: t, Access: a})
		}
	}
	return out
}

func (c *channel) set(ow permission.Overwrite) {
	if ow.Access == permission.Inherit {
		delete(c.overwrites, ow.Target)
		return
	}
	if _, ok := c.overwrites[ow.Target]; !ok {
		c.order = append(c.order, ow.Target)
	}
	c.overwrites[ow.Target] = ow.Access
}

// String is handy in test failure output.
func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("platformtest.Fake{channels: %d}", len(f.channels))
}
