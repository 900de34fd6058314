package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "discord:\n  token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Discord.Token)
	assert.Equal(t, 10*time.Second, cfg.Discord.RequestTimeout)
	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Address())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Redis.Address)
	assert.Equal(t, "memory", cfg.PubSub.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Room.StaleTTL)
	assert.Equal(t, 24*time.Hour, cfg.Room.ReportRetention)
	assert.True(t, cfg.Room.PrivateByDefault)
	assert.Equal(t, 2*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Timeout)
	assert.Equal(t, "all", cfg.Sweep.Scope)
	assert.Equal(t, "..", cfg.Commands.Prefix)
	assert.Equal(t, "roombot", cfg.JWT.Issuer)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
room:
  stale_ttl: 12h
  private_by_default: false
  moderator_role_ids: ["42", "43"]
commands:
  prefix: "!"
  denied_users: ["7"]
pubsub:
  driver: kafka
  kafka:
    brokers: broker:9092
`))
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Room.StaleTTL)
	assert.False(t, cfg.Room.PrivateByDefault)
	assert.Equal(t, []string{"42", "43"}, cfg.Room.ModeratorRoleIDs)
	assert.Equal(t, "!", cfg.Commands.Prefix)
	assert.Equal(t, []string{"7"}, cfg.Commands.DeniedUsers)
	assert.Equal(t, "kafka", cfg.PubSub.Driver)
	assert.Equal(t, "broker:9092", cfg.PubSub.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9999")
	t.Setenv("ROOMBOT_SWEEP_INTERVAL", "30m")

	cfg, err := Load(writeConfig(t, "discord:\n  token: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "room:\n  stale_ttl: 0s\n"))
	assert.ErrorContains(t, err, "room.stale_ttl")

	_, err = Load(writeConfig(t, "sweep:\n  interval: -1m\n"))
	assert.ErrorContains(t, err, "sweep.interval")

	_, err = Load(writeConfig(t, "sweep:\n  timeout: -1m\n"))
	assert.ErrorContains(t, err, "sweep.timeout")

	_, err = Load(writeConfig(t, "commands:\n  prefix: \"\"\n"))
	assert.ErrorContains(t, err, "commands.prefix")
}
