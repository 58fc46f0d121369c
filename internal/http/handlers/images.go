package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pixelforge/internal/domain"
	"pixelforge/internal/middleware"
)

type imageGenerateRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	Seed        *int64 `json:"seed"`
	Quality     string `json:"quality"`
}

type imageUpscaleRequest struct {
	ImageURL string `json:"image_url"`
	Model    string `json:"model"`
}

type generationResponse struct {
	ID          string `json:"id,omitempty"`
	ResultURL   string `json:"result_url"`
	Seed        *int64 `json:"seed,omitempty"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	DurationMS  int64  `json:"duration_ms"`
	StorageKey  string `json:"storage_key,omitempty"`
}

// ImagesGenerate runs one synchronous generation exchange against the selected
// model's space and records the outcome in history.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Model == "" {
		req.Model = "flux-schnell"
	}
	genReq := domain.GenerationRequest{
		Prompt:      req.Prompt,
		AspectRatio: domain.NormalizeAspectRatio(req.AspectRatio),
		Seed:        req.Seed,
		Provider:    "space",
		Model:       req.Model,
		Quality:     req.Quality,
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	}

	result, err := a.Images.Generate(r.Context(), genReq)
	if err != nil {
		a.generationError(w, r, genReq, err)
		return
	}
	if result == nil {
		a.error(w, http.StatusBadGateway, "no_result", "the backend completed without returning a result")
		return
	}
	a.finishGeneration(w, r, genReq, result)
}

// ImagesUpscale submits an existing result URL to an upscaler space.
func (a *App) ImagesUpscale(w http.ResponseWriter, r *http.Request) {
	var req imageUpscaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url must be an absolute url")
		return
	}
	genReq := domain.GenerationRequest{
		Prompt:      "upscale",
		AspectRatio: domain.AspectSquare,
		Provider:    "space",
		Model:       req.Model,
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	}
	result, err := a.Images.Upscale(r.Context(), req.ImageURL, genReq)
	if err != nil {
		a.generationError(w, r, genReq, err)
		return
	}
	if result == nil {
		a.error(w, http.StatusBadGateway, "no_result", "the backend completed without returning a result")
		return
	}
	a.finishGeneration(w, r, genReq, result)
}

func (a *App) finishGeneration(w http.ResponseWriter, r *http.Request, req domain.GenerationRequest, result *domain.GenerationResult) {
	gen := domain.Generation{
		ID:          uuid.NewString(),
		Prompt:      req.Prompt,
		Provider:    req.Provider,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Seed:        result.Seed,
		ResultURL:   result.ResultURL,
	}
	gen.StorageKey = a.mirrorAsset(r.Context(), gen.ID, result.ResultURL)

	if err := a.Generations.Create(r.Context(), &gen); err != nil {
		// The result is still usable; the id is not, so don't hand it out.
		a.Logger.Error().Err(err).Str("model", req.Model).Msg("handlers: persist generation failed")
		gen.ID = ""
	} else if err := a.Cache.Push(r.Context(), gen); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: history cache push failed")
	}

	a.json(w, http.StatusOK, generationResponse{
		ID:          gen.ID,
		ResultURL:   result.ResultURL,
		Seed:        result.Seed,
		Model:       req.Model,
		AspectRatio: string(req.AspectRatio),
		DurationMS:  result.Duration.Milliseconds(),
		StorageKey:  gen.StorageKey,
	})
}

// generationError maps adapter failures onto distinct client-facing codes so
// the UI can show the right message (quota exhaustion in particular).
func (a *App) generationError(w http.ResponseWriter, r *http.Request, req domain.GenerationRequest, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", "the provider rejected the request, usage quota exhausted")
	case errors.Is(err, domain.ErrUnsupportedProvider):
		a.error(w, http.StatusBadRequest, "unsupported_model", err.Error())
	case errors.Is(err, domain.ErrEnqueue):
		a.error(w, http.StatusBadGateway, "enqueue_failed", "the provider did not accept the job")
	case errors.Is(err, domain.ErrMalformedResponse):
		a.error(w, http.StatusBadGateway, "malformed_response", "the provider returned an unreadable result")
	default:
		a.error(w, http.StatusBadGateway, "provider_failure", "generation failed")
	}
	a.Logger.Error().Err(err).Str("model", req.Model).Str("request_id", req.RequestID).Msg("handlers: generation failed")
}

// mirrorAsset downloads the result into local storage when a file store is
// configured. Failures are logged and ignored; the remote URL still works.
func (a *App) mirrorAsset(ctx context.Context, id, resultURL string) string {
	if a.Files == nil || a.HTTPClient == nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return ""
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: mirror download failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return ""
	}
	key := fmt.Sprintf("generated/%s%s", id, extensionForMIME(resp.Header.Get("Content-Type")))
	saved, err := a.Files.Write(ctx, key, data)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: mirror write failed")
		return ""
	}
	return saved
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}
