package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CommandScope describes one chat command invocation.
type CommandScope struct {
	Command   string
	GuildID   string
	ChannelID string
	UserID    string
}

// StartCommand creates a child logger with invocation metadata and injects
// it into ctx. The returned func logs completion with latency and the
// outcome error, if any.
func StartCommand(ctx context.Context, logger zerolog.Logger, scope CommandScope) (context.Context, func(err error)) {
	start := time.Now()

	child := logger.With().
		Str(FieldRequestID, uuid.New().String()).
		Str(FieldCommand, scope.Command).
		Str(FieldGuildID, scope.GuildID).
		Str(FieldChannelID, scope.ChannelID).
		Str(FieldUserID, scope.UserID).
		Logger()

	done := func(err error) {
		evt := child.Info()
		if err != nil {
			evt = child.Warn().Err(err)
		}
		evt.Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("command completed")
	}

	return WithLogger(ctx, child), done
}
