package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aurzen/roombot/pkg/log"
)

// installLogger routes discordgo's internal logging through zerolog.
func installLogger(s *discordgo.Session) {
	s.LogLevel = discordgo.LogWarning
	discordgo.Logger = func(msgL, _ int, format string, a ...interface{}) {
		l := log.L()
		l.WithLevel(zerologLevel(msgL)).
			Str("source", "discordgo").
			Msg(fmt.Sprintf(format, a...))
	}
}

func zerologLevel(msgL int) zerolog.Level {
	switch msgL {
	case discordgo.LogError:
		return zerolog.ErrorLevel
	case discordgo.LogWarning:
		return zerolog.WarnLevel
	case discordgo.LogInformational:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
