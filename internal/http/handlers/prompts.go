package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"pixelforge/internal/middleware"
	"pixelforge/internal/providers/prompt"
)

type promptEnhanceRequest struct {
	Prompt string `json:"prompt"`
	Locale string `json:"locale"`
}

// PromptEnhance translates and optimizes a prompt for image generation. The
// source locale comes from the request body, falling back to the detected
// request locale.
func (a *App) PromptEnhance(w http.ResponseWriter, r *http.Request) {
	var req promptEnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	res, err := a.Prompts.Enhance(r.Context(), prompt.EnhanceRequest{
		Prompt: req.Prompt,
		Locale: locale,
	})
	if err != nil || res == nil {
		a.error(w, http.StatusBadGateway, "provider_failure", "prompt enhancement failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"prompt":   res.Prompt,
		"original": res.Original,
		"locale":   locale,
	})
}
