package pubsub

import "fmt"

// Channel naming conventions. Every channel has four colon-separated parts,
// {app}:{kind}:{key}:{suffix}, which the Kafka driver maps to a topic and a
// message key.
const (
	ChannelSweepTick  = "roombot:sweep:%s:tick"
	ChannelRoomEvents = "roombot:room:%s:events"

	PatternRoomEvents = "roombot:room:*:events"
)

// Sweep event types.
const (
	EventSweepTick = "sweep.tick"
)

// Room lifecycle event types.
const (
	EventRoomCreated  = "room.created"
	EventRoomReported = "room.reported"
	EventRoomLeft     = "room.left"
	EventRoomStale    = "room.stale"
	EventRoomDeleted  = "room.deleted"
)

// SweepTickChannel returns the tick channel for a sweep scope ("all" for
// every community).
func SweepTickChannel(scope string) string {
	return fmt.Sprintf(ChannelSweepTick, scope)
}

// RoomEventsChannel returns the lifecycle event channel for a room.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// SweepTickPayload is published by the sweep timer.
type SweepTickPayload struct {
	Reason string `json:"reason"` // "startup", "interval", "manual"
}

// RoomEventPayload describes a room lifecycle transition.
type RoomEventPayload struct {
	GuildID string   `json:"guild_id"`
	RoomID  string   `json:"room_id"`
	ActorID string   `json:"actor_id,omitempty"`
	Members []string `json:"members,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}
