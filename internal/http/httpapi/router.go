package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"pixelforge/internal/http/handlers"
	"pixelforge/internal/infra"
	"pixelforge/internal/middleware"
)

// NewRouter assembles the API surface consumed by the browser UI.
func NewRouter(app *handlers.App, cfg *infra.Config, lookup middleware.CountryLookup) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.I18N(cfg.DefaultLocale, lookup))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/models", app.ModelsList)

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/generate", app.ImagesGenerate)
		r.Post("/upscale", app.ImagesUpscale)
	})

	r.Route("/v1/videos", func(r chi.Router) {
		r.Post("/generate", app.VideosGenerate)
		r.Get("/{id}", app.VideoStatus)
	})

	r.Post("/v1/prompts/enhance", app.PromptEnhance)

	r.Route("/v1/history", func(r chi.Router) {
		r.Get("/", app.HistoryList)
		r.Get("/export", app.HistoryExport)
		r.Delete("/{id}", app.HistoryDelete)
	})

	r.Route("/v1/settings/tokens/{provider}", func(r chi.Router) {
		r.Get("/", app.TokenStatus)
		r.Put("/", app.TokenSet)
	})

	if app.Files != nil {
		fileServer := stdhttp.StripPrefix("/files/", stdhttp.FileServer(stdhttp.Dir(app.Files.BasePath())))
		r.Get("/files/*", fileServer.ServeHTTP)
	}

	return r
}
