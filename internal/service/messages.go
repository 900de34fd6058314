package service

import (
	"strings"
	"unicode"

	"github.com/aurzen/roombot/internal/platform"
)

const roomWelcome = "Thanks for creating the room. Only you and the other user(s) that you created the room with will be able to see this\n" +
	"Moderators and Admins will not be able to see this, unless it has been reported.\n" +
	"To report an issue with this chatroom (ie: they are aggressive, or mean, etc.) then please type `%[1]sreport`\n" +
	"That will lock the room to prevent message deletion, and eject all users.\n" +
	"It will also open the room up to admins and moderators to review the chat, and take appropriate actions as needed.\n" +
	"When you are done with the room, type `%[1]sleave` to leave the room."

const modChatWelcome = "Thanks for creating the room!\n" +
	"If you are reporting a user - please provide screenshots and their full Discord username and/or user IDs.\n" +
	"If you are reporting an issue within the server - please provide screenshots and all involved users too.\n"

// Audit-log reasons attached to channel deletions and topic edits.
const (
	reasonLastMemberLeft  = "All members left the room"
	reasonDroppedToOne    = "Users have dropped down to 1 in channel"
	reasonStaleExpired    = "24 hours since room dropped to 1 user"
	reasonReportRetention = "Report review period elapsed"
	reasonOrphaned        = "Cleanup: No members remaining"
	reasonCreateFailed    = "Room could not be recorded"
)

const maxChannelName = 100

// channelName joins member names the way the platform would display them:
// lower case, no whitespace, capped at the channel name limit.
func channelName(names ...string) string {
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('-')
		}
		for _, r := range strings.ToLower(name) {
			switch {
			case unicode.IsSpace(r):
				b.WriteByte('-')
			case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
				b.WriteRune(r)
			}
		}
	}
	name := []rune(b.String())
	if len(name) > maxChannelName {
		name = name[:maxChannelName]
	}
	if len(name) == 0 {
		return "room"
	}
	return string(name)
}

func mentionRoles(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = platform.MentionRole(id)
	}
	return strings.Join(out, ", ")
}
