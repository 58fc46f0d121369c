package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type tokenUpdateRequest struct {
	Token string `json:"token"`
}

var knownTokenProviders = map[string]struct{}{
	"huggingface": {},
	"video":       {},
	"gemini":      {},
}

// TokenStatus reports whether a token is stored for a provider. The token
// itself is never echoed back; only a masked tail is shown.
func (a *App) TokenStatus(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if _, ok := knownTokenProviders[provider]; !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown provider")
		return
	}
	token, err := a.Credentials.Token(r.Context(), provider)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load token")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"provider":   provider,
		"configured": token != "",
		"hint":       maskToken(token),
	})
}

// TokenSet stores or clears the bearer token for a provider.
func (a *App) TokenSet(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if _, ok := knownTokenProviders[provider]; !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown provider")
		return
	}
	var req tokenUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Credentials.SetToken(r.Context(), provider, req.Token); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to store token")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"provider":   provider,
		"configured": strings.TrimSpace(req.Token) != "",
	})
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return ""
	}
	return "..." + token[len(token)-4:]
}
