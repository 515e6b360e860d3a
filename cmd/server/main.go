package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/KoushikPanda1729/lms-english/internal/adapters/http"
	"github.com/KoushikPanda1729/lms-english/internal/adapters/ws"
	"github.com/KoushikPanda1729/lms-english/internal/app"
	"github.com/KoushikPanda1729/lms-english/internal/config"
	"github.com/KoushikPanda1729/lms-english/internal/identity"
	"github.com/KoushikPanda1729/lms-english/internal/platform"
	"github.com/KoushikPanda1729/lms-english/internal/store"
	"github.com/KoushikPanda1729/lms-english/internal/turn"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	st := store.NewRedis(rdb)
	reg := app.NewRegistry()
	creds := turn.NewGenerator(cfg.Turn.Host, cfg.Turn.Port, cfg.Turn.Secret)
	collab := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.ServiceToken, cfg.Platform.Timeout)
	limiter := app.NewSearchLimiter(cfg.Matchmaking.SearchLimit, cfg.Matchmaking.SearchWindow)

	teardown := &app.Teardown{Store: st, Registry: reg, Recorder: collab}
	mmCfg := app.MatchmakerConfig{
		QueueTTL:      cfg.Matchmaking.QueueTTL,
		RoomTTL:       cfg.Matchmaking.RoomTTL,
		MaxStaleSkips: cfg.Matchmaking.MaxStaleSkips,
	}
	match := app.NewMatchmaker(st, reg, collab, collab, creds, limiter, teardown, mmCfg)
	signaling := app.NewSignaling(st, reg, teardown, mmCfg)

	resolver := identity.NewResolver(cfg.JWTSecret)
	ctl := ws.NewController(match, signaling, reg, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, resolver, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("matchmaking server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	log.Info().Msg("Server exited gracefully")
}
