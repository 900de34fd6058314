package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/aurzen/roombot/internal/platform"
)

// wrapError converts a discordgo failure into a *platform.Error, classifying
// missing objects and permission failures.
func wrapError(op, id string, err error) error {
	if err == nil {
		return nil
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if kind := classify(rest); kind != nil {
			return &platform.Error{Op: op, ID: id, Err: fmt.Errorf("%w: %v", kind, err)}
		}
	}
	return platform.Wrap(op, id, err)
}

func classify(rest *discordgo.RESTError) error {
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownRole,
			discordgo.ErrCodeUnknownUser:
			return platform.ErrNotFound
		case discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions:
			return platform.ErrForbidden
		}
	}
	if rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return platform.ErrNotFound
		case http.StatusForbidden:
			return platform.ErrForbidden
		}
	}
	return nil
}
