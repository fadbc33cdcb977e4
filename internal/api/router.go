package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/calendar"
)

type RouterConfig struct {
	Service      *calendar.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	SlotInterval int
	Env          string
	Version      string
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/locticians/{locticianID}", func(r chi.Router) {
		r.Route("/availability", func(r chi.Router) {
			r.Post("/patterns", createPatternHandler(cfg.Service))
			r.Get("/patterns", listPatternsHandler(cfg.Service))
			r.Delete("/patterns/{patternID}", deletePatternHandler(cfg.Service))

			r.Post("/overrides", createOverrideHandler(cfg.Service))
			r.Post("/overrides/bulk", bulkOverridesHandler(cfg.Service))
			r.Get("/overrides", listOverridesHandler(cfg.Service))
			r.Delete("/overrides/{overrideID}", deleteOverrideHandler(cfg.Service))

			r.Get("/slots", slotsHandler(cfg.Service, cfg.SlotInterval))
			r.Get("/conflicts", conflictsHandler(cfg.Service))
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", createEventHandler(cfg.Service))
			r.Get("/", listEventsHandler(cfg.Service))
			r.Get("/{eventID}", getEventHandler(cfg.Service))
			r.Put("/{eventID}", updateEventHandler(cfg.Service))
			r.Delete("/{eventID}", deleteEventHandler(cfg.Service))
		})

		r.Get("/schedule", scheduleHandler(cfg.Service))
		r.Get("/calendar.ics", icalHandler(cfg.Service))
	})

	return r
}
