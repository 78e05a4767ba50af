package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hemovida/donation-scheduling/internal/api"
	"github.com/hemovida/donation-scheduling/internal/config"
	"github.com/hemovida/donation-scheduling/internal/db"
	"github.com/hemovida/donation-scheduling/internal/observability/metrics"
	"github.com/hemovida/donation-scheduling/internal/redisclient"
	"github.com/hemovida/donation-scheduling/internal/scheduling"
	"github.com/hemovida/donation-scheduling/pkg/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// Default registry: promhttp.Handler in the router serves it
	schedMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	store := scheduling.NewPgStore(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	recorder := scheduling.NewDonationRecorder(store, nil)
	campaigns := scheduling.NewCampaignProgressTracker(store, log)
	scheduler := scheduling.NewScheduler(store, locker, recorder, campaigns, log, scheduling.SchedulerOptions{
		Metrics:         schedMetrics,
		DefaultVolumeML: cfg.DefaultVolumeML,
	})

	router := api.NewRouter(api.RouterConfig{
		Scheduler:       scheduler,
		Campaigns:       campaigns,
		PgPool:          pgPool,
		Redis:           rdb,
		Env:             cfg.Env,
		Version:         version,
		Log:             log,
		HTTPMetrics:     httpMetrics,
		DefaultBranchID: cfg.DefaultBranchID,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
