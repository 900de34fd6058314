package service

import (
	"context"

	"github.com/aurzen/roombot/internal/domain"
)

// RoomService is the room lifecycle: create, report, leave and expiry.
type RoomService interface {
	CreateRoom(ctx context.Context, req *domain.RequestContext) (*domain.Room, error)
	CreateModChat(ctx context.Context, req *domain.RequestContext) (*ModChatResult, error)
	ReportRoom(ctx context.Context, req *domain.RequestContext) (*ReportResult, error)
	LeaveRoom(ctx context.Context, req *domain.RequestContext) (*LeaveResult, error)
	ExpireCheck(ctx context.Context, guildID, roomID string) (ExpireResult, error)
	Sweep(ctx context.Context) (*SweepSummary, error)
	ListGuilds(ctx context.Context) ([]string, error)
	ListRooms(ctx context.Context, guildID string) ([]domain.Room, error)
	GetRoom(ctx context.Context, guildID, roomID string) (*domain.Room, error)
}

// ModChatResult is a created moderator-contact room.
type ModChatResult struct {
	Room           *domain.Room `json:"room"`
	ModeratorRoles []string     `json:"moderator_roles"`
}

// ReportResult is a room after it was locked for review.
type ReportResult struct {
	Room           *domain.Room `json:"room"`
	ModeratorRoles []string     `json:"moderator_roles"`
}

// LeaveResult describes a room after a member left.
type LeaveResult struct {
	RoomID    string           `json:"room_id"`
	AccountID string           `json:"account_id"`
	Remaining []string         `json:"remaining"`
	State     domain.RoomState `json:"state"`
}

// ExpireResult is the outcome of one expiry check.
type ExpireResult int

const (
	// ExpireKept means the room stays.
	ExpireKept ExpireResult = iota
	// ExpireGone means the room was not tracked.
	ExpireGone
	// ExpireVanished means the channel no longer existed; only the
	// tracking entry was removed.
	ExpireVanished
	// ExpireStale means a room with one member passed the stale deadline.
	ExpireStale
	// ExpireReported means a locked room passed the report retention.
	ExpireReported
	// ExpireOrphaned means no member could see the room any more.
	ExpireOrphaned
)

func (r ExpireResult) String() string {
	switch r {
	case ExpireGone:
		return "gone"
	case ExpireVanished:
		return "vanished"
	case ExpireStale:
		return "stale"
	case ExpireReported:
		return "reported"
	case ExpireOrphaned:
		return "orphaned"
	default:
		return "kept"
	}
}

// Deleted reports whether the check deleted the channel.
func (r ExpireResult) Deleted() bool {
	return r == ExpireStale || r == ExpireReported || r == ExpireOrphaned
}

// SweepSummary counts what one sweep did.
type SweepSummary struct {
	Guilds  int `json:"guilds"`
	Checked int `json:"checked"`
	Deleted int `json:"deleted"`
	Pruned  int `json:"pruned"`
	Failed  int `json:"failed"`
}
