package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/aurzen/roombot/internal/cache"
	"github.com/aurzen/roombot/internal/command"
	"github.com/aurzen/roombot/internal/config"
	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/handler"
	"github.com/aurzen/roombot/internal/platform/discord"
	"github.com/aurzen/roombot/internal/repository"
	"github.com/aurzen/roombot/internal/service"
	"github.com/aurzen/roombot/internal/sweep"
	"github.com/aurzen/roombot/pkg/database"
	"github.com/aurzen/roombot/pkg/jwt"
	pkglog "github.com/aurzen/roombot/pkg/log"
	"github.com/aurzen/roombot/pkg/middleware"
	"github.com/aurzen/roombot/pkg/pubsub"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to the config file (default ./config/config.yaml)")
	mintSubject := pflag.String("mint-token", "", "print an admin API token for this subject and exit")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "roombot",
	})
	logger := pkglog.L()

	if *mintSubject != "" {
		if err := mintToken(cfg.JWT, *mintSubject); err != nil {
			logger.Fatal().Err(err).Msg("failed to mint token")
		}
		return
	}

	// Connect to database using GORM
	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, &domain.GuildRoomsModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	var store repository.RoomStore = repository.NewGormRoomStore(db)

	// Redis cache is optional
	if cfg.Redis.Address != "" {
		roomCache, err := cache.NewRedisRoomCache(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer roomCache.Close()
		store = repository.NewCachedRoomStore(store, roomCache, cfg.Redis.TTL)
		logger.Info().Str("address", cfg.Redis.Address).Msg("room cache enabled")
	}

	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create event bus")
	}
	defer bus.Close()

	client, err := discord.New(discord.Options{
		Token:               cfg.Discord.Token,
		RequestTimeout:      cfg.Discord.RequestTimeout,
		ExtraModeratorRoles: cfg.Room.ModeratorRoleIDs,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord client")
	}

	roomService := service.NewRoomService(client, store, bus, service.Options{
		StaleTTL:         cfg.Room.StaleTTL,
		ReportRetention:  cfg.Room.ReportRetention,
		PrivateByDefault: cfg.Room.PrivateByDefault,
		CommandPrefix:    cfg.Commands.Prefix,
	})

	router := command.NewRouter(cfg.Commands.Prefix, client)
	router.Register(command.RoomCommands(roomService, command.DenyUsers(cfg.Commands.DeniedUsers))...)
	router.Register(router.HelpCommand())
	client.HandleMessages(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := sweep.NewSubscriber(bus, roomService, cfg.Sweep.Scope, cfg.Sweep.Timeout)
	if err := subscriber.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start sweep subscriber")
	}

	// The first sweep needs the guild list, which arrives with Ready.
	timer := sweep.NewTimer(bus, cfg.Sweep.Interval, cfg.Sweep.Scope)
	var startTimer sync.Once
	client.OnReady(func() {
		startTimer.Do(func() {
			// Only fails on a bad interval, which config validation rejects.
			if err := timer.Start(ctx); err != nil {
				l := pkglog.L()
				l.Error().Err(err).Msg("failed to start sweep timer")
			}
		})
	})

	if err := client.Open(); err != nil {
		logger.Fatal().Err(err).Msg("failed to open discord session")
	}
	logger.Info().Str("prefix", cfg.Commands.Prefix).Msg("roombot connected")

	server := startAdminServer(cfg, roomService)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down roombot")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("admin server forced to shutdown")
		}
	}

	timer.Stop()
	subscriber.Stop()

	if err := client.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close discord session")
	}

	logger.Info().Msg("roombot stopped")
}

// startAdminServer serves the admin API when it is enabled and a signing
// secret is configured. It returns nil otherwise.
func startAdminServer(cfg *config.Config, roomService service.RoomService) *http.Server {
	logger := pkglog.L()

	if !cfg.Server.Enabled {
		return nil
	}
	if cfg.JWT.Secret == "" {
		logger.Warn().Msg("jwt.secret not set, admin API disabled")
		return nil
	}

	jwtManager, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))

	handler.NewHandler(roomService, middleware.NewAuthMiddleware(jwtManager)).RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("address", server.Addr).Msg("admin API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("admin server error")
		}
	}()

	return server
}

func mintToken(cfg config.JWTConfig, subject string) error {
	m, err := jwt.NewManager(cfg.Secret, cfg.Issuer, cfg.Expiry)
	if err != nil {
		return err
	}
	token, expires, err := m.Issue(subject, jwt.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	return nil
}
