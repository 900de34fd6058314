// Package command routes prefixed chat messages to room commands.
package command

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/aurzen/roombot/pkg/log"
)

// ErrDenied is returned when a command's auth predicate rejects the caller.
var ErrDenied = errors.New("command not allowed for this account")

// Message is an incoming guild text message.
type Message struct {
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorIsBot bool
	Content     string
}

// Sender posts replies.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// AuthFunc decides whether msg's author may run a command.
type AuthFunc func(msg *Message) bool

// HandlerFunc runs a command. args is the text after the command name.
// The returned reply is posted to the invoking channel when non-empty.
type HandlerFunc func(ctx context.Context, msg *Message, args string) (string, error)

// Command is one registered command.
type Command struct {
	Name    string
	Usage   string
	Auth    AuthFunc
	Handler HandlerFunc
}

// Router dispatches messages that start with its prefix.
type Router struct {
	prefix   string
	sender   Sender
	commands map[string]Command
}

// NewRouter creates a router for prefix, replying through sender.
func NewRouter(prefix string, sender Sender) *Router {
	return &Router{
		prefix:   prefix,
		sender:   sender,
		commands: make(map[string]Command),
	}
}

// Register adds commands; a later registration replaces an earlier one
// with the same name.
func (r *Router) Register(cmds ...Command) {
	for _, cmd := range cmds {
		r.commands[strings.ToLower(cmd.Name)] = cmd
	}
}

// Help lists every registered command with its usage, one per line.
func (r *Router) Help() string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		usage := r.commands[name].Usage
		if usage == "" {
			usage = name
		}
		b.WriteString("`" + r.prefix + usage + "`\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// HelpCommand replies with Help.
func (r *Router) HelpCommand() Command {
	return Command{
		Name:  "help",
		Usage: "help",
		Handler: func(context.Context, *Message, string) (string, error) {
			return r.Help(), nil
		},
	}
}

// Parse splits content into a command name and its arguments. ok is false
// when content does not start with the prefix.
func (r *Router) Parse(content string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, r.prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(content, r.prefix)
	name, args, _ = strings.Cut(rest, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(args), true
}

// Dispatch runs the command in msg, if any, and reports whether one ran.
// Messages from bots and outside guilds are ignored.
func (r *Router) Dispatch(ctx context.Context, msg *Message) bool {
	if msg.AuthorIsBot || msg.GuildID == "" {
		return false
	}
	name, args, ok := r.Parse(msg.Content)
	if !ok {
		return false
	}
	cmd, ok := r.commands[name]
	if !ok {
		return false
	}

	ctx, done := log.StartCommand(ctx, log.Ctx(ctx), log.CommandScope{
		Command:   name,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		UserID:    msg.AuthorID,
	})

	var (
		reply string
		err   error
	)
	if cmd.Auth != nil && !cmd.Auth(msg) {
		err = ErrDenied
	} else {
		reply, err = cmd.Handler(ctx, msg, args)
	}
	if err != nil {
		reply = ErrorReply(err)
	}

	if reply != "" {
		if serr := r.sender.SendMessage(ctx, msg.ChannelID, reply); serr != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(serr).Msg("failed to send command reply")
		}
	}
	done(err)
	return true
}
