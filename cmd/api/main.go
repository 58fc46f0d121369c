package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pixelforge/internal/adapter/repo"
	"pixelforge/internal/adapter/store"
	"pixelforge/internal/http/handlers"
	"pixelforge/internal/http/httpapi"
	"pixelforge/internal/infra"
	"pixelforge/internal/infra/geoip"
	"pixelforge/internal/middleware"
	"pixelforge/internal/providers/image"
	"pixelforge/internal/providers/prompt"
	"pixelforge/internal/providers/space"
	"pixelforge/internal/providers/video"
	"pixelforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, history cache disabled")
	}

	catalog, err := space.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load model catalog")
	}

	credentials := repo.NewCredentialRepository(pool)
	httpClient := &http.Client{Timeout: 120 * time.Second}

	generator, err := image.NewSpaceGenerator(image.Options{
		Catalog:    catalog,
		Tokens:     credentials,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image generator")
	}

	if cfg.VideoAPIKey == "" {
		logger.Warn().Msg("video api key missing, relying on stored credentials")
	}
	videoClient, err := video.NewClient(video.Options{
		BaseURL:    cfg.VideoAPIBaseURL,
		APIKey:     cfg.VideoAPIKey,
		Tokens:     credentials,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure video client")
	}

	enhancer := buildEnhancer(cfg, credentials, logger)

	var fileStore *storage.FileStore
	if cfg.StoragePath != "" {
		fileStore, err = storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure storage")
		}
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	app := &handlers.App{
		Logger:      logger,
		Generations: repo.NewGenerationRepository(pool),
		Tasks:       repo.NewTaskRepository(pool),
		Credentials: credentials,
		Images:      generator,
		Video:       videoClient,
		Prompts:     enhancer,
		Cache:       store.NewHistoryCache(redisClient),
		Files:       fileStore,
		Models:      catalog,
		HTTPClient:  httpClient,
	}

	router := httpapi.NewRouter(app, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildEnhancer(cfg *infra.Config, tokens prompt.TokenSource, logger infra.Logger) prompt.Enhancer {
	if cfg.PromptProvider == "gemini" {
		enhancer, err := prompt.NewGeminiEnhancer(prompt.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Tokens:  tokens,
		})
		if err == nil {
			return enhancer
		}
		logger.Warn().Err(err).Msg("gemini enhancer unavailable, using static")
	}
	return prompt.NewStaticEnhancer()
}
