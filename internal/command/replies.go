package command

import (
	"errors"
	"regexp"

	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/platform"
)

const (
	replyTooFewMembers = "Please create a room with at least 2 people!"
	replyNotARoom      = "This can only be used in a roombot channel!"
	replyNotMember     = "You are not a member of this room!"
	replyDenied        = "You are not allowed to use this command."
	replyForbidden     = "I don't have permission to do that here."
	replyFailed        = "Something went wrong, please try again later."
)

// ErrorReply maps a command error to the text shown to the caller.
func ErrorReply(err error) string {
	switch {
	case errors.Is(err, domain.ErrTooFewMembers):
		return replyTooFewMembers
	case errors.Is(err, domain.ErrNotARoom):
		return replyNotARoom
	case errors.Is(err, domain.ErrNotMember):
		return replyNotMember
	case errors.Is(err, ErrDenied):
		return replyDenied
	case errors.Is(err, platform.ErrForbidden):
		return replyForbidden
	default:
		return replyFailed
	}
}

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// ParseMentions returns the account ids mentioned in s, in order.
func ParseMentions(s string) []string {
	matches := mentionPattern.FindAllStringSubmatch(s, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}
