package domain

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleTopic_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 4, 5, 123456000, time.FixedZone("X", 3600))

	topic := EncodeStaleTopic(at)
	raw, err := base64.URLEncoding.DecodeString(topic)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09T16:04:05.123456", string(raw))

	got, err := DecodeStaleTopic(topic)
	require.NoError(t, err)
	assert.True(t, at.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}

func TestDecodeStaleTopic(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	got, err := DecodeStaleTopic(enc("2024-03-09T16:04:05"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 16, 4, 5, 0, time.UTC), got)

	for _, topic := range []string{"", "   ", "not base64!!", enc("yesterday"), "Talk about cats here"} {
		_, err := DecodeStaleTopic(topic)
		assert.Error(t, err, topic)
	}
}

func TestGuildRooms_Lifecycle(t *testing.T) {
	doc := NewGuildRooms()
	doc.Add("10", RoomKindChat, []string{"1", "2", "2", "", "3"})

	room, err := doc.Room("g1", "10")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, room.Members)
	assert.Equal(t, RoomStateActive, room.State)
	assert.False(t, room.Locked)

	remaining, err := doc.RemoveMember("10", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, remaining)

	_, err = doc.RemoveMember("10", "2")
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = doc.RemoveMember("99", "1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = doc.RemoveMember("10", "3")
	require.NoError(t, err)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, doc.MarkStale("10", at))

	room, err = doc.Room("g1", "10")
	require.NoError(t, err)
	assert.Equal(t, RoomStateStale, room.State)
	assert.Equal(t, at, *room.StaleSince)

	require.NoError(t, doc.Delete("10"))
	assert.False(t, doc.Has("10"))
	assert.ErrorIs(t, doc.Delete("10"), ErrRoomNotFound)
	assert.Equal(t, 0, doc.Len())
}

func TestGuildRooms_MarkLockedFirstWins(t *testing.T) {
	doc := NewGuildRooms()
	doc.Add("10", RoomKindChat, []string{"1", "2"})

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, doc.MarkLocked("10", first))
	require.NoError(t, doc.MarkLocked("10", first.Add(time.Hour)))

	room, err := doc.Room("g1", "10")
	require.NoError(t, err)
	assert.True(t, room.Locked)
	assert.Equal(t, first, *room.LockedAt)

	assert.ErrorIs(t, doc.MarkLocked("11", first), ErrRoomNotFound)
	assert.ErrorIs(t, doc.MarkStale("11", first), ErrRoomNotFound)
}

func TestGuildRooms_LegacyDocument(t *testing.T) {
	var doc GuildRooms
	require.NoError(t, json.Unmarshal([]byte(`{"channels":{"20":["5","6"],"10":["1"]}}`), &doc))

	assert.Equal(t, []string{"10", "20"}, doc.RoomIDs())

	rooms := doc.Rooms("g1")
	require.Len(t, rooms, 2)
	assert.Equal(t, RoomKindChat, rooms[0].Kind)
	assert.Equal(t, RoomStateActive, rooms[0].State, "no stored stale time")

	require.NoError(t, doc.MarkStale("10", time.Now()))
	assert.Contains(t, doc.Meta, "10")
}

func TestGuildRooms_CloneIsDeep(t *testing.T) {
	doc := NewGuildRooms()
	doc.Add("10", RoomKindModChat, []string{"1", "2"})

	cp := doc.Clone()
	_, err := cp.RemoveMember("10", "1")
	require.NoError(t, err)
	cp.Channels["10"][0] = "x"

	assert.Equal(t, []string{"1", "2"}, doc.Channels["10"])
	room, err := cp.Room("g1", "10")
	require.NoError(t, err)
	assert.Equal(t, RoomKindModChat, room.Kind)
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrNotMember))
	assert.True(t, IsDomainError(ErrTooFewMembers))
	assert.False(t, IsDomainError(assert.AnError))
	assert.False(t, IsDomainError(nil))
}
