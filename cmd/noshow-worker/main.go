package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hemovida/donation-scheduling/internal/config"
	"github.com/hemovida/donation-scheduling/internal/db"
	"github.com/hemovida/donation-scheduling/internal/redisclient"
	"github.com/hemovida/donation-scheduling/internal/scheduling"
	"github.com/hemovida/donation-scheduling/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "noshow-worker").Logger()
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.NoShowGrace).
		Msg("noshow-worker starting up")

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

	store := scheduling.NewPgStore(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	recorder := scheduling.NewDonationRecorder(store, nil)
	campaigns := scheduling.NewCampaignProgressTracker(store, log)
	scheduler := scheduling.NewScheduler(store, locker, recorder, campaigns, log, scheduling.SchedulerOptions{
		DefaultVolumeML: cfg.DefaultVolumeML,
	})

	// Run once at startup
	runOnce(rootCtx, log, scheduler, cfg.NoShowGrace)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping noshow-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, log, scheduler, cfg.NoShowGrace)
		}
	}
}

func runOnce(ctx context.Context, log zerolog.Logger, scheduler *scheduling.Scheduler, grace time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := scheduler.SweepNoShows(runCtx, grace)
	if err != nil {
		log.Error().Err(err).Msg("no-show sweep error")
		return
	}
	log.Info().Int("swept", swept).Dur("took", time.Since(start)).Msg("no-show sweep complete")
}
