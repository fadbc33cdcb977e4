package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/calendar"
	"github.com/strandloc/booking-calendar/internal/config"
	"github.com/strandloc/booking-calendar/internal/db"
)

// The retention worker periodically purges calendar data nobody reads
// anymore: past-dated availability overrides and finished non-recurring
// events older than the configured retention window.

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "retention-worker").Logger()
	log.Info().Msg("starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("retention_days", cfg.RetentionDays).
		Msg("configured")

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

	repos := calendar.NewPgRepositories(pgPool)

	runOnce(rootCtx, repos, cfg, loc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping retention worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repos, cfg, loc, log)
		}
	}
}

func runOnce(ctx context.Context, repos *calendar.PgRepositories, cfg config.Config, loc *time.Location, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	cutoff := time.Now().In(loc).AddDate(0, 0, -cfg.RetentionDays)

	overrides, err := repos.Overrides.DeleteOlderThan(runCtx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("override retention run error")
		return
	}

	events, err := repos.Events.DeleteFinishedBefore(runCtx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("event retention run error")
		return
	}

	log.Info().
		Int64("overrides_purged", overrides).
		Int64("events_purged", events).
		Dur("took", time.Since(start)).
		Msg("retention run complete")
}
