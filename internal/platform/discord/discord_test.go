package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurzen/roombot/internal/permission"
	"github.com/aurzen/roombot/internal/platform"
)

func TestAccessBitsRoundTrip(t *testing.T) {
	for _, access := range []permission.Access{permission.Hidden, permission.Visible, permission.Full} {
		t.Run(access.String(), func(t *testing.T) {
			ow := fromOverwrite(permission.Overwrite{Target: permission.Member("42"), Access: access})
			assert.Equal(t, "42", ow.ID)
			assert.Equal(t, discordgo.PermissionOverwriteTypeMember, ow.Type)
			assert.Equal(t, access, overwriteAccess(ow))
		})
	}

	allow, deny := accessBits(permission.Hidden)
	assert.Zero(t, allow)
	assert.NotZero(t, deny&discordgo.PermissionViewChannel)
	assert.NotZero(t, deny&discordgo.PermissionSendMessages)

	allow, _ = accessBits(permission.Visible)
	assert.Zero(t, allow&discordgo.PermissionManageChannels)

	allow, _ = accessBits(permission.Full)
	assert.NotZero(t, allow&discordgo.PermissionManageRoles)
}

func TestToChannel(t *testing.T) {
	ch := toChannel(&discordgo.Channel{
		ID:      "5",
		GuildID: "1",
		Name:    "alice-bob",
		Topic:   "x",
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: "1", Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
			{ID: "7", Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel},
			{ID: "8", Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionSendMessages},
		},
	})

	require.Len(t, ch.Overwrites, 3)
	assert.Equal(t, permission.Overwrite{Target: permission.Role("1"), Access: permission.Hidden}, ch.Overwrites[0])
	assert.Equal(t, permission.Overwrite{Target: permission.Member("7"), Access: permission.Visible}, ch.Overwrites[1])
	assert.Equal(t, 2, permission.CountMembers(ch.Overwrites, ""))
}

func TestIsModeratorRole(t *testing.T) {
	assert.True(t, isModeratorRole(&discordgo.Role{Permissions: discordgo.PermissionBanMembers}))
	assert.True(t, isModeratorRole(&discordgo.Role{Permissions: discordgo.PermissionManageServer}))
	assert.False(t, isModeratorRole(&discordgo.Role{Permissions: discordgo.PermissionSendMessages}))
}

func TestWrapError(t *testing.T) {
	notFound := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}
	forbidden := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
	}
	other := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusInternalServerError},
	}

	err := wrapError("Channel", "5", notFound)
	assert.True(t, platform.IsNotFound(err))
	var pe *platform.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Channel", pe.Op)
	assert.Equal(t, "5", pe.ID)

	assert.ErrorIs(t, wrapError("SetOverwrite", "5", forbidden), platform.ErrForbidden)

	err = wrapError("Channel", "5", other)
	assert.False(t, platform.IsNotFound(err))
	assert.ErrorAs(t, err, &pe)

	err = wrapError("Channel", "5", errors.New("dial tcp: timeout"))
	assert.False(t, platform.IsNotFound(err))
	assert.Contains(t, err.Error(), "dial tcp")
	assert.NoError(t, wrapError("Channel", "5", nil))
}

func TestToMessage(t *testing.T) {
	assert.Nil(t, toMessage(&discordgo.MessageCreate{Message: &discordgo.Message{}}))

	msg := toMessage(&discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   "1",
		ChannelID: "2",
		Content:   "..leave",
		Author:    &discordgo.User{ID: "3", Bot: true},
	}})
	require.NotNil(t, msg)
	assert.Equal(t, "1", msg.GuildID)
	assert.Equal(t, "2", msg.ChannelID)
	assert.Equal(t, "3", msg.AuthorID)
	assert.True(t, msg.AuthorIsBot)
	assert.Equal(t, "..leave", msg.Content)
}
