package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"pixelforge/internal/adapter/repo"
	"pixelforge/internal/adapter/store"
	"pixelforge/internal/infra"
	"pixelforge/internal/providers/video"
	"pixelforge/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	credentials := repo.NewCredentialRepository(pool)
	if cfg.VideoAPIKey == "" {
		logger.Warn().Msg("worker: video api key missing, relying on stored credentials")
	}
	videoClient, err := video.NewClient(video.Options{
		BaseURL:    cfg.VideoAPIBaseURL,
		APIKey:     cfg.VideoAPIKey,
		Tokens:     credentials,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure video client")
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, history cache disabled")
	}

	tasks := repo.NewTaskRepository(pool)
	generations := repo.NewGenerationRepository(pool)
	cache := store.NewHistoryCache(redisClient)

	trk, err := tracker.New(tracker.Options{
		Repo:       tasks,
		Poller:     videoClient,
		Interval:   cfg.TrackerInterval,
		Logger:     &logger,
		OnTerminal: tracker.RecordHistory(generations, cache, &logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure tracker")
	}
	trk.Start(ctx)
	defer trk.Stop()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RetentionSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := generations.DeleteOlderThan(sweepCtx, cfg.RetentionDays)
		if err != nil {
			logger.Error().Err(err).Msg("worker: history retention sweep failed")
			return
		}
		if removed > 0 {
			logger.Info().Int64("removed", removed).Msg("worker: pruned old history")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid retention schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info().Msg("worker: started")
	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
