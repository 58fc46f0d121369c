package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
)

// HistorySink receives completed generations for the gallery view.
type HistorySink interface {
	Push(ctx context.Context, gen domain.Generation) error
}

// RecordHistory returns an OnTerminal hook that records successful video tasks
// as history entries, so finished clips show up in the gallery next to images.
// Failed tasks stay out of history; their error lives on the task record.
func RecordHistory(gens domain.GenerationRepository, cache HistorySink, logger *infra.Logger) func(domain.TaskRecord) {
	return func(rec domain.TaskRecord) {
		if rec.Status != domain.TaskStatusSuccess || rec.ResultURL == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		gen := domain.Generation{
			ID:        uuid.NewString(),
			Prompt:    rec.Prompt,
			Provider:  rec.Provider,
			Model:     "video",
			ResultURL: rec.ResultURL,
		}
		if err := gens.Create(ctx, &gen); err != nil {
			if logger != nil {
				logger.Error().Err(err).Str("task_id", rec.TaskID).Msg("tracker: record video history failed")
			}
			return
		}
		if cache != nil {
			if err := cache.Push(ctx, gen); err != nil && logger != nil {
				logger.Warn().Err(err).Msg("tracker: history cache push failed")
			}
		}
	}
}
