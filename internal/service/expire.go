package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aurzen/roombot/internal/audit"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/permission"
	"github.com/aurzen/roombot/internal/platform"
	"github.com/aurzen/roombot/pkg/log"
)

// ExpireCheck decides whether one room should go, and deletes it if so.
// Deadlines are exclusive: a room is removed once its age is strictly
// greater than the configured duration.
func (s *roomServiceImpl) ExpireCheck(ctx context.Context, guildID, roomID string) (ExpireResult, error) {
	ctx = log.WithGuild(ctx, guildID)
	l := log.Ctx(ctx).With().Str(log.FieldRoomID, roomID).Logger()

	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return ExpireKept, err
	}
	defer unlock()

	doc, err := s.store.Get(ctx, guildID)
	if err != nil {
		return ExpireKept, err
	}
	room, err := doc.Room(guildID, roomID)
	if err != nil {
		return ExpireGone, nil
	}

	ch, err := s.platform.Channel(ctx, roomID)
	if err != nil {
		if platform.IsNotFound(err) {
			if err := s.forget(ctx, guildID, roomID); err != nil {
				return ExpireKept, err
			}
			l.Info().Msg("pruned room whose channel no longer exists")
			return ExpireVanished, nil
		}
		return ExpireKept, fmt.Errorf("fetch room channel: %w", err)
	}

	now := s.now()
	result, reason := ExpireKept, ""

	switch {
	case room.Locked:
		if now.Sub(*room.LockedAt) > s.opts.ReportRetention {
			result, reason = ExpireReported, reasonReportRetention
		}

	case room.Kind == domain.RoomKindModChat:
		// Moderator rooms close through leave only.

	default:
		if since, ok := staleSince(room, ch); ok && now.Sub(since) > s.opts.StaleTTL {
			result, reason = ExpireStale, reasonStaleExpired
		} else if permission.CountMembers(ch.Overwrites, s.platform.BotID()) == 0 {
			result, reason = ExpireOrphaned, reasonOrphaned
		}
	}

	if result == ExpireKept {
		return ExpireKept, nil
	}

	if err := s.deleteRoom(ctx, guildID, roomID, reason); err != nil {
		return ExpireKept, err
	}
	audit.LogWithDetail(ctx, audit.ActionExpireRoom, "", roomID, result.String(), "room expired")
	return result, nil
}

// staleSince prefers the stored timestamp and falls back to the channel
// topic for rooms recorded before it was stored. The topic only counts once
// the room is down to one member.
func staleSince(room *domain.Room, ch *platform.Channel) (time.Time, bool) {
	if room.StaleSince != nil {
		return *room.StaleSince, true
	}
	if ch.Topic == "" || len(room.Members) > 1 {
		return time.Time{}, false
	}
	t, err := domain.DecodeStaleTopic(ch.Topic)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Sweep runs ExpireCheck over every tracked room in every guild the bot is
// in. A failing room is logged and skipped.
func (s *roomServiceImpl) Sweep(ctx context.Context) (*SweepSummary, error) {
	l := log.Ctx(ctx)
	start := time.Now()

	guilds, err := s.platform.Guilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}

	summary := &SweepSummary{}
	for _, guildID := range guilds {
		doc, err := s.store.Get(ctx, guildID)
		if err != nil {
			l.Error().Err(err).Str(log.FieldGuildID, guildID).Msg("failed to load rooms for sweep")
			summary.Failed++
			continue
		}
		summary.Guilds++

		for _, roomID := range doc.RoomIDs() {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			summary.Checked++
			result, err := s.ExpireCheck(ctx, guildID, roomID)
			if err != nil {
				l.Warn().Err(err).
					Str(log.FieldGuildID, guildID).
					Str(log.FieldRoomID, roomID).
					Msg("expiry check failed, skipping room")
				summary.Failed++
				continue
			}
			switch {
			case result == ExpireVanished:
				summary.Pruned++
			case result.Deleted():
				summary.Deleted++
			}
		}
	}

	audit.LogWithDetail(ctx, audit.ActionSweep, "", "",
		fmt.Sprintf("checked=%d deleted=%d pruned=%d failed=%d", summary.Checked, summary.Deleted, summary.Pruned, summary.Failed),
		"sweep completed")
	l.Info().
		Int("guilds", summary.Guilds).
		Int("checked", summary.Checked).
		Int("deleted", summary.Deleted).
		Int("pruned", summary.Pruned).
		Int("failed", summary.Failed).
		Dur("took", time.Since(start)).
		Msg("sweep completed")
	return summary, nil
}
