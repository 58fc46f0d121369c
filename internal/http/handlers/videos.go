package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pixelforge/internal/domain"
	"pixelforge/internal/providers/video"
)

type videoGenerateRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
	Duration int    `json:"duration"`
}

type taskResponse struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ResultURL    string `json:"result_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// VideosGenerate animates a still (or a bare prompt) by creating a background
// task on the video backend. The response is immediate; the task tracker
// reconciles the terminal status later.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	if a.Video == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "video generation is not configured")
		return
	}
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt or image_url is required")
		return
	}

	taskID, err := a.Video.CreateTask(r.Context(), video.CreateRequest{
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Duration: req.Duration,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEnqueue) {
			a.error(w, http.StatusBadGateway, "enqueue_failed", "the provider did not accept the task")
		} else {
			a.error(w, http.StatusBadGateway, "provider_failure", "failed to create video task")
		}
		a.Logger.Error().Err(err).Msg("handlers: create video task failed")
		return
	}

	rec := domain.TaskRecord{
		ID:       uuid.NewString(),
		TaskID:   taskID,
		Provider: "video",
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Status:   domain.TaskStatusGenerating,
	}
	if err := a.Tasks.Create(r.Context(), &rec); err != nil {
		// The remote task exists but we lost the handle; surface the failure.
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("handlers: persist task record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record video task")
		return
	}

	a.json(w, http.StatusAccepted, taskResponse{
		ID:     rec.ID,
		TaskID: rec.TaskID,
		Status: string(rec.Status),
	})
}

// VideoStatus reports the current state of one video task record. Reads hit
// local state only; polling the remote backend is the tracker's job.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	rec, err := a.Tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return
	}
	a.json(w, http.StatusOK, taskResponse{
		ID:           rec.ID,
		TaskID:       rec.TaskID,
		Status:       string(rec.Status),
		ResultURL:    rec.ResultURL,
		ErrorMessage: rec.ErrorMessage,
	})
}
