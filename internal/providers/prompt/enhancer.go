package prompt

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EnhanceRequest asks for a prompt to be translated into English and optimized
// for image generation.
type EnhanceRequest struct {
	Prompt string
	Locale string
}

// EnhanceResponse carries the rewritten prompt.
type EnhanceResponse struct {
	Prompt   string `json:"prompt"`
	Original string `json:"original"`
	Provider string `json:"-"`
}

// Enhancer is the contract implemented by all prompt providers.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
}

const (
	geminiProviderName = "gemini"
	staticProviderName = "static"
)

var qualityTags = []string{"highly detailed", "sharp focus", "professional lighting"}

// StaticEnhancer rewrites prompts without any remote call. It cannot
// translate; it normalizes casing and appends quality tags the hosted models
// respond well to. Used as the fallback when no LLM is configured.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	original := strings.TrimSpace(req.Prompt)
	text := original
	if text == "" {
		text = "abstract colorful artwork"
	}
	c := cases.Title(language.Und)
	first := text
	if idx := strings.IndexAny(text, ",."); idx > 0 {
		first = text[:idx]
	}
	rewritten := strings.Replace(text, first, c.String(first), 1)
	for _, tag := range qualityTags {
		if !strings.Contains(strings.ToLower(rewritten), tag) {
			rewritten += ", " + tag
		}
	}
	return &EnhanceResponse{
		Prompt:   rewritten,
		Original: original,
		Provider: staticProviderName,
	}, nil
}

var _ Enhancer = (*StaticEnhancer)(nil)
