package handlers

import (
	"net/http"

	"pixelforge/internal/domain"
)

// ModelNames supplies the model list shown in the UI's provider picker.
type ModelNames interface {
	ModelNames() []string
}

// ModelsList enumerates available models and aspect ratios.
func (a *App) ModelsList(w http.ResponseWriter, r *http.Request) {
	var models []string
	if a.Models != nil {
		models = a.Models.ModelNames()
	}
	a.json(w, http.StatusOK, map[string]any{
		"models": models,
		"aspect_ratios": []string{
			string(domain.AspectSquare),
			string(domain.AspectPortrait),
			string(domain.AspectLandscape),
			string(domain.AspectPhoto),
			string(domain.AspectWide),
		},
	})
}
