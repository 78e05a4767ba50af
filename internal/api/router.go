package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hemovida/donation-scheduling/internal/observability/metrics"
)

type RouterConfig struct {
	Scheduler       SchedulerService
	Campaigns       CampaignService
	PgPool          *pgxpool.Pool
	Redis           *redis.Client
	Env             string
	Version         string
	Log             zerolog.Logger
	HTTPMetrics     *metrics.HTTPMetrics
	DefaultBranchID uuid.UUID
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log, cfg.HTTPMetrics))

	// Health and metrics endpoints bypass the identity requirement
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Post("/appointments", createAppointmentHandler(cfg.Scheduler, cfg.DefaultBranchID))
		r.Get("/appointments", listBranchAppointmentsHandler(cfg.Scheduler))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Scheduler))
		r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Scheduler))
		r.Post("/appointments/{id}/resolve", resolveAppointmentHandler(cfg.Scheduler))

		r.Get("/my/appointments", listMyAppointmentsHandler(cfg.Scheduler))
		r.Get("/my/donations", donorHistoryHandler(cfg.Scheduler))

		r.Get("/campaigns/{id}/progress", campaignProgressHandler(cfg.Campaigns))
	})

	return r
}
