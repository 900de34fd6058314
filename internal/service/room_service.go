package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aurzen/roombot/internal/audit"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/permission"
	"github.com/aurzen/roombot/internal/platform"
	"github.com/aurzen/roombot/internal/repository"
	"github.com/aurzen/roombot/pkg/log"
	"github.com/aurzen/roombot/pkg/pubsub"
)

// Options tunes the room lifecycle.
type Options struct {
	// StaleTTL is how long a room may sit with one member.
	StaleTTL time.Duration
	// ReportRetention is how long a reported room stays open for review.
	ReportRetention time.Duration
	// PrivateByDefault denies the everyone role on new rooms.
	PrivateByDefault bool
	// CommandPrefix is quoted in the welcome message.
	CommandPrefix string
	// ApplyConcurrency bounds parallel overwrite edits on one channel.
	ApplyConcurrency int
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StaleTTL <= 0 {
		o.StaleTTL = 24 * time.Hour
	}
	if o.ReportRetention <= 0 {
		o.ReportRetention = 24 * time.Hour
	}
	if o.CommandPrefix == "" {
		o.CommandPrefix = ".."
	}
	if o.ApplyConcurrency <= 0 {
		o.ApplyConcurrency = 4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// roomServiceImpl implements RoomService interface.
type roomServiceImpl struct {
	platform platform.Platform
	store    repository.RoomStore
	bus      pubsub.Publisher
	opts     Options
	locks    *keyedLock
}

// NewRoomService creates a new room service. bus may be nil.
func NewRoomService(p platform.Platform, store repository.RoomStore, bus pubsub.Publisher, opts Options) RoomService {
	return &roomServiceImpl{
		platform: p,
		store:    store,
		bus:      bus,
		opts:     opts.withDefaults(),
		locks:    newKeyedLock(),
	}
}

func (s *roomServiceImpl) now() time.Time {
	return s.opts.Now().UTC()
}

// CreateRoom opens a private room for the caller and every mentioned member.
func (s *roomServiceImpl) CreateRoom(ctx context.Context, req *domain.RequestContext) (*domain.Room, error) {
	ctx = log.WithGuild(ctx, req.GuildID)
	l := log.Ctx(ctx)

	members, err := s.resolveMembers(ctx, req.GuildID, append([]string{req.AuthorID}, req.Mentions...))
	if err != nil {
		return nil, err
	}
	if len(members) < domain.MinRoomMembers {
		return nil, domain.ErrTooFewMembers
	}

	ids := make([]string, len(members))
	names := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
		names[i] = m.Name
	}

	plan := permission.Build(permission.Input{
		Members:          ids,
		BotID:            s.platform.BotID(),
		EveryoneRoleID:   s.platform.EveryoneRoleID(req.GuildID),
		PrivateByDefault: s.opts.PrivateByDefault,
	})

	room, err := s.openRoom(ctx, req.GuildID, channelName(names...), domain.RoomKindChat, ids, plan)
	if err != nil {
		return nil, err
	}

	if err := s.platform.SendMessage(ctx, room.ID, fmt.Sprintf(roomWelcome, s.opts.CommandPrefix)); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to post welcome message")
	}

	audit.LogWithDetail(ctx, audit.ActionCreateRoom, req.AuthorID, room.ID, fmt.Sprintf("members=%d", len(ids)), "room created")
	s.publish(ctx, pubsub.EventRoomCreated, req.GuildID, room.ID, req.AuthorID, ids, "")
	return room, nil
}

// CreateModChat opens a room between the caller and the moderators.
func (s *roomServiceImpl) CreateModChat(ctx context.Context, req *domain.RequestContext) (*ModChatResult, error) {
	ctx = log.WithGuild(ctx, req.GuildID)
	l := log.Ctx(ctx)

	members, err := s.resolveMembers(ctx, req.GuildID, []string{req.AuthorID})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("resolve requester %s: %w", req.AuthorID, platform.ErrNotFound)
	}
	requester := members[0]

	mods, err := s.platform.ModeratorRoles(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list moderator roles: %w", err)
	}

	plan := permission.Build(permission.Input{
		Members:                 []string{requester.ID},
		BotID:                   s.platform.BotID(),
		EveryoneRoleID:          s.platform.EveryoneRoleID(req.GuildID),
		ModeratorRoles:          mods,
		PrivateByDefault:        s.opts.PrivateByDefault,
		ModeratorsAlwaysVisible: true,
	})

	room, err := s.openRoom(ctx, req.GuildID, channelName("modchat", requester.Name), domain.RoomKindModChat, []string{requester.ID}, plan)
	if err != nil {
		return nil, err
	}

	if err := s.platform.SendMessage(ctx, room.ID, modChatWelcome+mentionRoles(mods)); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to post welcome message")
	}

	audit.Log(ctx, audit.ActionCreateModChat, req.AuthorID, room.ID, "moderator room created")
	s.publish(ctx, pubsub.EventRoomCreated, req.GuildID, room.ID, req.AuthorID, room.Members, string(domain.RoomKindModChat))
	return &ModChatResult{Room: room, ModeratorRoles: mods}, nil
}

// openRoom creates the channel with the plan in place and starts tracking it.
// If tracking fails the channel is removed again.
func (s *roomServiceImpl) openRoom(ctx context.Context, guildID, name string, kind domain.RoomKind, members []string, plan permission.Plan) (*domain.Room, error) {
	ch, err := s.platform.CreateChannel(ctx, guildID, name, plan.Explicit())
	if err != nil {
		return nil, fmt.Errorf("create room channel: %w", err)
	}

	doc, err := s.store.Mutate(ctx, guildID, func(doc *domain.GuildRooms) error {
		doc.Add(ch.ID, kind, members)
		return nil
	})
	if err != nil {
		if derr := s.platform.DeleteChannel(ctx, ch.ID, reasonCreateFailed); derr != nil {
			l := log.Ctx(ctx)
			l.Error().Err(derr).Str(log.FieldRoomID, ch.ID).Msg("failed to remove untracked room channel")
		}
		return nil, fmt.Errorf("track room %s: %w", ch.ID, err)
	}
	return doc.Room(guildID, ch.ID)
}

// ReportRoom locks a room: members lose access and moderators gain it.
func (s *roomServiceImpl) ReportRoom(ctx context.Context, req *domain.RequestContext) (*ReportResult, error) {
	ctx = log.WithGuild(ctx, req.GuildID)

	unlock, err := s.locks.Lock(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	room, err := s.trackedRoom(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}

	mods, err := s.platform.ModeratorRoles(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list moderator roles: %w", err)
	}

	ch, err := s.platform.Channel(ctx, req.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("fetch room channel: %w", err)
	}

	// Everyone who can currently see the room is ejected, including
	// accounts granted access outside the bot.
	ejected := slices.Clone(room.Members)
	for _, ow := range ch.Overwrites {
		if ow.Target.Kind == permission.TargetMember && !slices.Contains(ejected, ow.Target.ID) {
			ejected = append(ejected, ow.Target.ID)
		}
	}

	plan := permission.Build(permission.Input{
		Members:          ejected,
		Locked:           true,
		BotID:            s.platform.BotID(),
		EveryoneRoleID:   s.platform.EveryoneRoleID(req.GuildID),
		ModeratorRoles:   mods,
		PrivateByDefault: s.opts.PrivateByDefault,
	})
	if err := s.applyPlan(ctx, req.ChannelID, plan); err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}

	doc, err := s.store.Mutate(ctx, req.GuildID, func(doc *domain.GuildRooms) error {
		return doc.MarkLocked(req.ChannelID, s.now())
	})
	if err != nil {
		return nil, err
	}
	room, err = doc.Room(req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionReportRoom, req.AuthorID, room.ID, "room reported")
	s.publish(ctx, pubsub.EventRoomReported, req.GuildID, room.ID, req.AuthorID, room.Members, "")
	return &ReportResult{Room: room, ModeratorRoles: mods}, nil
}

// LeaveRoom removes the caller from a room. The last member out deletes the
// room; dropping to one member starts the stale clock.
func (s *roomServiceImpl) LeaveRoom(ctx context.Context, req *domain.RequestContext) (*LeaveResult, error) {
	ctx = log.WithGuild(ctx, req.GuildID)

	unlock, err := s.locks.Lock(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	room, err := s.trackedRoom(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(req.AuthorID) {
		return nil, domain.ErrNotMember
	}

	if err := s.platform.SetOverwrite(ctx, room.ID, permission.Overwrite{
		Target: permission.Member(req.AuthorID),
		Access: permission.Inherit,
	}); err != nil {
		return nil, fmt.Errorf("remove member overwrite: %w", err)
	}

	result := &LeaveResult{RoomID: room.ID, AccountID: req.AuthorID}
	now := s.now()

	switch len(room.Members) - 1 {
	case 0:
		if err := s.deleteRoom(ctx, req.GuildID, room.ID, reasonLastMemberLeft); err != nil {
			return nil, err
		}
		result.Remaining = []string{}
		result.State = domain.RoomStateDeleted

	case 1:
		if err := s.platform.SetTopic(ctx, room.ID, domain.EncodeStaleTopic(now), reasonDroppedToOne); err != nil {
			return nil, fmt.Errorf("write stale topic: %w", err)
		}
		var remaining []string
		if _, err := s.store.Mutate(ctx, req.GuildID, func(doc *domain.GuildRooms) error {
			var err error
			if remaining, err = doc.RemoveMember(room.ID, req.AuthorID); err != nil {
				return err
			}
			return doc.MarkStale(room.ID, now)
		}); err != nil {
			return nil, err
		}
		result.Remaining = remaining
		result.State = domain.RoomStateStale
		s.publish(ctx, pubsub.EventRoomStale, req.GuildID, room.ID, req.AuthorID, remaining, "")

	default:
		var remaining []string
		if _, err := s.store.Mutate(ctx, req.GuildID, func(doc *domain.GuildRooms) error {
			var err error
			remaining, err = doc.RemoveMember(room.ID, req.AuthorID)
			return err
		}); err != nil {
			return nil, err
		}
		result.Remaining = remaining
		result.State = domain.RoomStateActive
	}

	audit.LogWithDetail(ctx, audit.ActionLeaveRoom, req.AuthorID, room.ID,
		fmt.Sprintf("remaining=%d", len(result.Remaining)), "member left room")
	s.publish(ctx, pubsub.EventRoomLeft, req.GuildID, room.ID, req.AuthorID, result.Remaining, string(result.State))
	return result, nil
}

// ListGuilds returns the guilds that have a stored room document.
func (s *roomServiceImpl) ListGuilds(ctx context.Context) ([]string, error) {
	return s.store.Guilds(ctx)
}

// ListRooms returns every tracked room in a guild.
func (s *roomServiceImpl) ListRooms(ctx context.Context, guildID string) ([]domain.Room, error) {
	doc, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return doc.Rooms(guildID), nil
}

// GetRoom returns one tracked room.
func (s *roomServiceImpl) GetRoom(ctx context.Context, guildID, roomID string) (*domain.Room, error) {
	doc, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return doc.Room(guildID, roomID)
}

func (s *roomServiceImpl) trackedRoom(ctx context.Context, guildID, roomID string) (*domain.Room, error) {
	doc, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	room, err := doc.Room(guildID, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, domain.ErrNotARoom
	}
	return room, err
}

// resolveMembers looks up each distinct account, skipping the bot and
// accounts that are not in the guild.
func (s *roomServiceImpl) resolveMembers(ctx context.Context, guildID string, ids []string) ([]platform.Member, error) {
	l := log.Ctx(ctx)
	botID := s.platform.BotID()

	seen := make(map[string]struct{}, len(ids))
	members := make([]platform.Member, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" || id == botID {
			continue
		}
		seen[id] = struct{}{}

		m, err := s.platform.Member(ctx, guildID, id)
		if err != nil {
			if platform.IsNotFound(err) {
				l.Debug().Str(log.FieldUserID, id).Msg("skipping unknown member")
				continue
			}
			return nil, fmt.Errorf("resolve member %s: %w", id, err)
		}
		members = append(members, *m)
	}
	return members, nil
}

// applyPlan writes every overwrite in the plan to the channel.
func (s *roomServiceImpl) applyPlan(ctx context.Context, channelID string, plan permission.Plan) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ApplyConcurrency)
	for _, ow := range plan.Overwrites {
		g.Go(func() error {
			return s.platform.SetOverwrite(gctx, channelID, ow)
		})
	}
	return g.Wait()
}

// deleteRoom deletes the channel, then forgets the room. A channel that is
// already gone still gets forgotten.
func (s *roomServiceImpl) deleteRoom(ctx context.Context, guildID, roomID, reason string) error {
	if err := s.platform.DeleteChannel(ctx, roomID, reason); err != nil && !platform.IsNotFound(err) {
		return fmt.Errorf("delete room channel: %w", err)
	}
	if err := s.forget(ctx, guildID, roomID); err != nil {
		return err
	}
	s.publish(ctx, pubsub.EventRoomDeleted, guildID, roomID, "", nil, reason)
	return nil
}

func (s *roomServiceImpl) forget(ctx context.Context, guildID, roomID string) error {
	_, err := s.store.Mutate(ctx, guildID, func(doc *domain.GuildRooms) error {
		return doc.Delete(roomID)
	})
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil
	}
	return err
}

func (s *roomServiceImpl) publish(ctx context.Context, eventType, guildID, roomID, actorID string, members []string, reason string) {
	if s.bus == nil {
		return
	}
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, roomID, pubsub.RoomEventPayload{
		GuildID: guildID,
		RoomID:  roomID,
		ActorID: actorID,
		Members: members,
		Reason:  reason,
	})
	if err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to build room event")
		return
	}
	if err := s.bus.Publish(ctx, pubsub.RoomEventsChannel(roomID), event); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish room event")
	}
}
