// Package config loads the bot configuration from ./config/config.yaml and
// the environment.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/aurzen/roombot/pkg/config"
	"github.com/aurzen/roombot/pkg/database"
	"github.com/aurzen/roombot/pkg/pubsub"
)

type Config struct {
	Discord  DiscordConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	PubSub   pubsub.Config `mapstructure:"pubsub"`
	Room     RoomConfig
	Sweep    SweepConfig
	Commands CommandsConfig
	JWT      JWTConfig
	Log      LogConfig
}

type DiscordConfig struct {
	Token          string
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ServerConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Address returns the admin API listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// ToDatabaseConfig converts to the shared database package config.
func (d DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		FilePath:        d.FilePath,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		LogLevel:        d.LogLevel,
	}
}

// RedisConfig configures the room document cache. An empty address disables it.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type RoomConfig struct {
	StaleTTL         time.Duration `mapstructure:"stale_ttl"`
	ReportRetention  time.Duration `mapstructure:"report_retention"`
	PrivateByDefault bool          `mapstructure:"private_by_default"`
	ModeratorRoleIDs []string      `mapstructure:"moderator_role_ids"`
}

type SweepConfig struct {
	Interval time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
	Scope   string
}

type CommandsConfig struct {
	Prefix      string
	DeniedUsers []string `mapstructure:"denied_users"`
}

type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads the configuration. file overrides the default ./config/config.yaml
// lookup when non-empty.
func Load(file string) (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.Source{
		Dir:       "./config",
		Name:      "config",
		File:      file,
		EnvPrefix: "ROOMBOT",
	})
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("discord.request_timeout", 10*time.Second)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "roombot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/roombot.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "roombot:rooms")
	v.SetDefault("redis.ttl", 10*time.Minute)
	defaults := pubsub.DefaultConfig()
	v.SetDefault("pubsub.driver", defaults.Driver)
	v.SetDefault("pubsub.redis.address", defaults.Redis.Address)
	v.SetDefault("pubsub.redis.pool_size", defaults.Redis.PoolSize)
	v.SetDefault("pubsub.redis.read_timeout", defaults.Redis.ReadTimeout)
	v.SetDefault("pubsub.redis.write_timeout", defaults.Redis.WriteTimeout)
	v.SetDefault("pubsub.kafka.brokers", defaults.Kafka.Brokers)
	v.SetDefault("pubsub.kafka.group_id", defaults.Kafka.GroupID)
	v.SetDefault("pubsub.kafka.partitions", defaults.Kafka.Partitions)
	v.SetDefault("room.stale_ttl", 24*time.Hour)
	v.SetDefault("room.report_retention", 24*time.Hour)
	v.SetDefault("room.private_by_default", true)
	v.SetDefault("room.moderator_role_ids", []string{})
	v.SetDefault("sweep.interval", 2*time.Hour)
	v.SetDefault("sweep.timeout", 30*time.Minute)
	v.SetDefault("sweep.scope", "all")
	v.SetDefault("commands.prefix", "..")
	v.SetDefault("commands.denied_users", []string{})
	v.SetDefault("jwt.issuer", "roombot")
	v.SetDefault("jwt.expiry", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"discord.token":        "DISCORD_TOKEN",
		"server.port":          "PORT",
		"database.driver":      "DB_DRIVER",
		"database.host":        "DB_HOST",
		"database.port":        "DB_PORT",
		"database.user":        "DB_USER",
		"database.password":    "DB_PASSWORD",
		"database.dbname":      "DB_NAME",
		"database.sslmode":     "DB_SSLMODE",
		"database.file_path":   "DB_FILE_PATH",
		"redis.address":        "REDIS_ADDRESS",
		"redis.password":       "REDIS_PASSWORD",
		"pubsub.driver":        "PUBSUB_DRIVER",
		"pubsub.kafka.brokers": "KAFKA_BROKERS",
		"jwt.secret":           "JWT_SECRET",
		"log.level":            "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	if c.Room.StaleTTL <= 0 {
		return fmt.Errorf("room.stale_ttl must be positive, got %s", c.Room.StaleTTL)
	}
	if c.Room.ReportRetention <= 0 {
		return fmt.Errorf("room.report_retention must be positive, got %s", c.Room.ReportRetention)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Sweep.Timeout < 0 {
		return fmt.Errorf("sweep.timeout must not be negative, got %s", c.Sweep.Timeout)
	}
	if c.Commands.Prefix == "" {
		return fmt.Errorf("commands.prefix must not be empty")
	}
	return nil
}
