package domain

import (
	"slices"
	"sort"
	"time"
)

// MinRoomMembers is the smallest participant set a chat room can be created with.
const MinRoomMembers = 2

// RoomKind distinguishes member rooms from moderator-contact rooms.
type RoomKind string

const (
	RoomKindChat    RoomKind = "chat"
	RoomKindModChat RoomKind = "modchat"
)

// RoomState is the lifecycle state of a room. Locked is orthogonal and
// carried separately on Room.
type RoomState string

const (
	RoomStateActive  RoomState = "active"
	RoomStateStale   RoomState = "stale"
	RoomStateDeleted RoomState = "deleted"
)

// Room is a read view of one tracked room.
type Room struct {
	ID         string     `json:"id"`
	GuildID    string     `json:"guild_id"`
	Kind       RoomKind   `json:"kind"`
	Members    []string   `json:"members"`
	State      RoomState  `json:"state"`
	Locked     bool       `json:"locked"`
	StaleSince *time.Time `json:"stale_since,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
}

// HasMember reports whether accountID is in the room's member set.
func (r *Room) HasMember(accountID string) bool {
	return slices.Contains(r.Members, accountID)
}

// RoomMeta is per-room state that does not fit the legacy member-list shape.
type RoomMeta struct {
	Kind       RoomKind   `json:"kind,omitempty"`
	StaleSince *time.Time `json:"stale_since,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
}

// GuildRooms is the persisted document for one community. Channels keeps
// the legacy {room_id: [member_id, ...]} shape; Meta holds the rest.
// Deleted rooms are removed, never tombstoned.
type GuildRooms struct {
	Channels map[string][]string `json:"channels"`
	Meta     map[string]RoomMeta `json:"meta,omitempty"`
}

// NewGuildRooms returns an empty document.
func NewGuildRooms() *GuildRooms {
	return &GuildRooms{
		Channels: make(map[string][]string),
		Meta:     make(map[string]RoomMeta),
	}
}

func (g *GuildRooms) ensure() {
	if g.Channels == nil {
		g.Channels = make(map[string][]string)
	}
	if g.Meta == nil {
		g.Meta = make(map[string]RoomMeta)
	}
}

// Clone returns a deep copy, so cached documents are never shared.
func (g *GuildRooms) Clone() *GuildRooms {
	out := NewGuildRooms()
	for id, members := range g.Channels {
		out.Channels[id] = slices.Clone(members)
	}
	for id, meta := range g.Meta {
		out.Meta[id] = meta
	}
	return out
}

// Has reports whether roomID is tracked.
func (g *GuildRooms) Has(roomID string) bool {
	_, ok := g.Channels[roomID]
	return ok
}

// Add tracks a new room. Members are de-duplicated.
func (g *GuildRooms) Add(roomID string, kind RoomKind, members []string) {
	g.ensure()
	g.Channels[roomID] = dedupe(members)
	g.Meta[roomID] = RoomMeta{Kind: kind}
}

// Room returns the read view of roomID for guildID.
func (g *GuildRooms) Room(guildID, roomID string) (*Room, error) {
	members, ok := g.Channels[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	meta := g.Meta[roomID]

	kind := meta.Kind
	if kind == "" {
		kind = RoomKindChat
	}

	room := &Room{
		ID:         roomID,
		GuildID:    guildID,
		Kind:       kind,
		Members:    slices.Clone(members),
		State:      RoomStateActive,
		Locked:     meta.LockedAt != nil,
		StaleSince: meta.StaleSince,
		LockedAt:   meta.LockedAt,
	}
	if meta.StaleSince != nil && len(members) == 1 {
		room.State = RoomStateStale
	}
	return room, nil
}

// Rooms returns every tracked room, ordered by id.
func (g *GuildRooms) Rooms(guildID string) []Room {
	ids := g.RoomIDs()
	rooms := make([]Room, 0, len(ids))
	for _, id := range ids {
		room, _ := g.Room(guildID, id)
		rooms = append(rooms, *room)
	}
	return rooms
}

// RoomIDs returns the tracked room ids in a stable order.
func (g *GuildRooms) RoomIDs() []string {
	ids := make([]string, 0, len(g.Channels))
	for id := range g.Channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RemoveMember drops accountID from roomID and returns the remaining members.
func (g *GuildRooms) RemoveMember(roomID, accountID string) ([]string, error) {
	members, ok := g.Channels[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	idx := slices.Index(members, accountID)
	if idx < 0 {
		return nil, ErrNotMember
	}
	remaining := slices.Delete(slices.Clone(members), idx, idx+1)
	g.Channels[roomID] = remaining
	return slices.Clone(remaining), nil
}

// MarkStale records when the room dropped to its last member.
func (g *GuildRooms) MarkStale(roomID string, at time.Time) error {
	if !g.Has(roomID) {
		return ErrRoomNotFound
	}
	g.ensure()
	meta := g.Meta[roomID]
	at = at.UTC()
	meta.StaleSince = &at
	g.Meta[roomID] = meta
	return nil
}

// MarkLocked records when the room was reported. The first report wins.
func (g *GuildRooms) MarkLocked(roomID string, at time.Time) error {
	if !g.Has(roomID) {
		return ErrRoomNotFound
	}
	g.ensure()
	meta := g.Meta[roomID]
	if meta.LockedAt == nil {
		at = at.UTC()
		meta.LockedAt = &at
	}
	g.Meta[roomID] = meta
	return nil
}

// Delete forgets roomID.
func (g *GuildRooms) Delete(roomID string) error {
	if !g.Has(roomID) {
		return ErrRoomNotFound
	}
	delete(g.Channels, roomID)
	delete(g.Meta, roomID)
	return nil
}

// Len returns the number of tracked rooms.
func (g *GuildRooms) Len() int {
	return len(g.Channels)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
