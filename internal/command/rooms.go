package command

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/platform"
	"github.com/aurzen/roombot/internal/service"
)

// AllowAll permits every caller.
func AllowAll(*Message) bool { return true }

// DenyUsers permits everyone except the listed accounts.
func DenyUsers(ids []string) AuthFunc {
	if len(ids) == 0 {
		return AllowAll
	}
	denied := slices.Clone(ids)
	return func(msg *Message) bool {
		return !slices.Contains(denied, msg.AuthorID)
	}
}

// RoomCommands returns the chat, chatmod, report and leave commands.
func RoomCommands(svc service.RoomService, auth AuthFunc) []Command {
	if auth == nil {
		auth = AllowAll
	}
	return []Command{
		{
			Name:  "chat",
			Usage: "chat <member>...",
			Auth:  auth,
			Handler: func(ctx context.Context, msg *Message, args string) (string, error) {
				room, err := svc.CreateRoom(ctx, requestOf(msg, ParseMentions(args)))
				if err != nil {
					return "", err
				}
				mentions := make([]string, len(room.Members))
				for i, id := range room.Members {
					mentions[i] = platform.MentionUser(id)
				}
				return fmt.Sprintf("Created! %s\n%s", platform.MentionChannel(room.ID), strings.Join(mentions, ", ")), nil
			},
		},
		{
			Name:  "chatmod",
			Usage: "chatmod",
			Auth:  auth,
			Handler: func(ctx context.Context, msg *Message, _ string) (string, error) {
				res, err := svc.CreateModChat(ctx, requestOf(msg, nil))
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Created! %s", platform.MentionChannel(res.Room.ID)), nil
			},
		},
		{
			Name:  "report",
			Usage: "report",
			Auth:  auth,
			Handler: func(ctx context.Context, msg *Message, _ string) (string, error) {
				res, err := svc.ReportRoom(ctx, requestOf(msg, nil))
				if err != nil {
					return "", err
				}
				roles := make([]string, len(res.ModeratorRoles))
				for i, id := range res.ModeratorRoles {
					roles[i] = platform.MentionRole(id)
				}
				return strings.TrimSpace("Locking channel! " + strings.Join(roles, ", ")), nil
			},
		},
		{
			Name:  "leave",
			Usage: "leave",
			Auth:  auth,
			Handler: func(ctx context.Context, msg *Message, _ string) (string, error) {
				res, err := svc.LeaveRoom(ctx, requestOf(msg, nil))
				if err != nil {
					return "", err
				}
				// The channel is gone; there is nowhere to reply.
				if res.State == domain.RoomStateDeleted {
					return "", nil
				}
				return fmt.Sprintf("%s has exited the channel", platform.MentionUser(msg.AuthorID)), nil
			},
		},
	}
}

func requestOf(msg *Message, mentions []string) *domain.RequestContext {
	return &domain.RequestContext{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		Mentions:  mentions,
	}
}
