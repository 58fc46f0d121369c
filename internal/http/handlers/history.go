package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pixelforge/internal/domain"
	"pixelforge/pkg/zip"
)

// HistoryList returns recent generations, newest first. The Redis cache is
// consulted first; a miss falls through to Postgres.
func (a *App) HistoryList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	if cached, err := a.Cache.Recent(r.Context(), limit); err == nil && cached != nil {
		a.json(w, http.StatusOK, map[string]any{"items": toHistoryItems(cached), "source": "cache"})
		return
	}

	items, err := a.Generations.List(r.Context(), limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": toHistoryItems(items), "source": "db"})
}

// HistoryDelete removes one record from history and invalidates the cache.
func (a *App) HistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Generations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "record not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete record")
		return
	}
	if err := a.Cache.Invalidate(r.Context()); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: cache invalidate failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryExport bundles recent results into a zip download. Mirrored assets
// are read from local storage; everything else is fetched from the result URL.
func (a *App) HistoryExport(w http.ResponseWriter, r *http.Request) {
	items, err := a.Generations.List(r.Context(), 50)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	var assets []zip.Asset
	for _, gen := range items {
		if gen.ResultURL == "" {
			continue
		}
		data := a.loadAssetBytes(r, gen)
		if data == nil {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("%s%s", gen.ID, extensionFromKey(gen.StorageKey)),
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no exportable results")
		return
	}
	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="pixelforge-history.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) loadAssetBytes(r *http.Request, gen domain.Generation) []byte {
	if gen.StorageKey != "" && a.Files != nil {
		if data, err := a.Files.Read(r.Context(), gen.StorageKey); err == nil {
			return data
		}
	}
	if a.HTTPClient == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, gen.ResultURL, nil)
	if err != nil {
		return nil
	}
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		a.Logger.Warn().Err(err).Str("id", gen.ID).Msg("handlers: export download failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil
	}
	return data
}

type historyItem struct {
	ID           string `json:"id"`
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	AspectRatio  string `json:"aspect_ratio"`
	Seed         *int64 `json:"seed,omitempty"`
	ResultURL    string `json:"result_url,omitempty"`
	StorageKey   string `json:"storage_key,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toHistoryItems(gens []domain.Generation) []historyItem {
	items := make([]historyItem, 0, len(gens))
	for _, gen := range gens {
		items = append(items, historyItem{
			ID:           gen.ID,
			Prompt:       gen.Prompt,
			Model:        gen.Model,
			AspectRatio:  string(gen.AspectRatio),
			Seed:         gen.Seed,
			ResultURL:    gen.ResultURL,
			StorageKey:   gen.StorageKey,
			ErrorMessage: gen.ErrorMessage,
			CreatedAt:    gen.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return items
}

func extensionFromKey(key string) string {
	for _, ext := range []string{".png", ".jpg", ".webp", ".mp4"} {
		if len(key) > len(ext) && key[len(key)-len(ext):] == ext {
			return ext
		}
	}
	return ".png"
}
