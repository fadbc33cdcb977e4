package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/api"
	"github.com/strandloc/booking-calendar/internal/calendar"
	"github.com/strandloc/booking-calendar/internal/config"
	"github.com/strandloc/booking-calendar/internal/db"
	redisclient "github.com/strandloc/booking-calendar/internal/redis"
)

var version = "dev"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Str("version", version).Msg("starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		log = log.Level(zerolog.DebugLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("timezone", cfg.Timezone).Msg("configured")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone error")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	repos := calendar.NewPgRepositories(pgPool)
	expander := calendar.NewRecurrenceExpander(log)
	engine := calendar.NewEngine(
		repos.Patterns, repos.Overrides, repos.Events, repos.Bookings,
		expander, loc, cfg.BufferMinutes, log,
	)
	svc := calendar.NewService(calendar.ServiceDeps{
		Locticians: repos.Locticians,
		Patterns:   repos.Patterns,
		Overrides:  repos.Overrides,
		Events:     repos.Events,
		Bookings:   repos.Bookings,
		Engine:     engine,
		Expander:   expander,
		Locker:     redisclient.NewRedisLocticianLocker(rdb, cfg.LockTTL),
		Notifier:   redisclient.NewPubSubNotifier(rdb, log),
		Location:   loc,
		Logger:     log,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:      svc,
		PgPool:       pgPool,
		Redis:        rdb,
		SlotInterval: cfg.SlotInterval,
		Env:          cfg.Env,
		Version:      version,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("api-server stopped")
}
