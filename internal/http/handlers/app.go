package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"pixelforge/internal/adapter/store"
	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
	"pixelforge/internal/providers/image"
	"pixelforge/internal/providers/prompt"
	"pixelforge/internal/providers/video"
	"pixelforge/internal/storage"
)

// VideoBackend creates background video generation tasks.
type VideoBackend interface {
	CreateTask(ctx context.Context, req video.CreateRequest) (string, error)
}

// App is the handler container; every collaborator is injected explicitly so
// handlers stay testable without a live environment.
type App struct {
	Logger      infra.Logger
	Generations domain.GenerationRepository
	Tasks       domain.TaskRepository
	Credentials domain.CredentialRepository
	Images      image.Generator
	Video       VideoBackend
	Prompts     prompt.Enhancer
	Cache       *store.HistoryCache
	Files       *storage.FileStore
	Models      ModelNames
	HTTPClient  *http.Client
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}
