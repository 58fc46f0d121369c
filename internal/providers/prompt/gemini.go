package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies API keys stored through the settings surface.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// CredentialProvider is the settings key under which Gemini API keys are
// stored.
const CredentialProvider = "gemini"

// GeminiOptions configures the Gemini prompt rewriter. APIKey is the static
// fallback; a key stored in Tokens takes precedence on every call.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	Fallback   Enhancer
}

// GeminiEnhancer translates prompts to English and rewrites them for image
// generation via the Gemini API. Every failure path degrades to the fallback
// rather than surfacing an error: a worse prompt beats no prompt.
type GeminiEnhancer struct {
	apiKey   string
	model    string
	baseURL  string
	tokens   TokenSource
	client   *http.Client
	fallback Enhancer
}

const geminiDefaultTimeout = 15 * time.Second

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiEnhancePayload struct {
	Prompt string `json:"prompt"`
}

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.APIKey == "" && opts.Tokens == nil {
		return nil, errors.New("gemini api key or token source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiEnhancer{
		apiKey:   opts.APIKey,
		model:    model,
		baseURL:  baseURL,
		tokens:   opts.Tokens,
		client:   client,
		fallback: opts.Fallback,
	}, nil
}

func (g *GeminiEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	apiKey := g.resolveKey(ctx)
	if apiKey == "" {
		return g.useFallback(ctx, req)
	}
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{{
				Text: g.buildEnhancePrompt(req),
			}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.4,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return g.useFallback(ctx, req)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return g.useFallback(ctx, req)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return g.useFallback(ctx, req)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return g.useFallback(ctx, req)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return g.useFallback(ctx, req)
	}
	text := extractText(out)
	if text == "" {
		return g.useFallback(ctx, req)
	}
	parsed, err := parseEnhancePayload(text)
	if err != nil || strings.TrimSpace(parsed.Prompt) == "" {
		return g.useFallback(ctx, req)
	}
	return &EnhanceResponse{
		Prompt:   strings.TrimSpace(parsed.Prompt),
		Original: req.Prompt,
		Provider: geminiProviderName,
	}, nil
}

// endpoint builds the generateContent URL. The API key travels only in the
// x-goog-api-key header, never in the query string where intermediaries would
// log it.
func (g *GeminiEnhancer) endpoint() string {
	base := strings.TrimRight(g.baseURL, "/")
	model := url.PathEscape(g.model)
	return fmt.Sprintf("%s/models/%s:generateContent", base, model)
}

// resolveKey prefers a key stored via the settings surface over the key the
// process was configured with.
func (g *GeminiEnhancer) resolveKey(ctx context.Context) string {
	if g.tokens != nil {
		if stored, err := g.tokens.Token(ctx, CredentialProvider); err == nil && stored != "" {
			return stored
		}
	}
	return g.apiKey
}

func (g *GeminiEnhancer) buildEnhancePrompt(req EnhanceRequest) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an expert at writing prompts for text-to-image diffusion models. ")
	sb.WriteString(`Respond strictly with JSON matching this schema: {"prompt":string}. `)
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	fmt.Fprintf(sb, "The input prompt may be written in locale '%s'; translate it to English if needed, then rewrite it as a vivid, specific image prompt under 80 words. Keep the subject intact. Input prompt: %q.", locale, req.Prompt)
	return sb.String()
}

func (g *GeminiEnhancer) useFallback(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	fallback := g.fallback
	if fallback == nil {
		fallback = NewStaticEnhancer()
	}
	res, err := fallback.Enhance(ctx, req)
	if res != nil {
		res.Provider = staticProviderName
	}
	return res, err
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseEnhancePayload(raw string) (geminiEnhancePayload, error) {
	var decoded geminiEnhancePayload
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return decoded, errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return decoded, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

var _ Enhancer = (*GeminiEnhancer)(nil)
