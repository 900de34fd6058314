package domain

import "errors"

var (
	// ErrTooFewMembers is returned when a room would have fewer than
	// MinRoomMembers distinct participants.
	ErrTooFewMembers = errors.New("a room needs at least 2 distinct members")

	// ErrNotARoom is returned when a room command runs in a channel that is
	// not tracked as a room.
	ErrNotARoom = errors.New("channel is not a room")

	// ErrRoomNotFound is returned by document mutations on an unknown room id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotMember is returned when the caller is not a member of the room.
	ErrNotMember = errors.New("account is not a member of this room")
)

// IsDomainError reports whether err is one of the sentinels above, i.e. an
// expected outcome rather than an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrTooFewMembers) ||
		errors.Is(err, ErrNotARoom) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrNotMember)
}
