package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pixelforge/internal/domain"
	"pixelforge/internal/infra"
)

// TokenSource supplies the bearer token attached to requests.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// CredentialProvider is the settings key under which video API tokens are
// stored.
const CredentialProvider = "video"

// Options configures the background-task video client. APIKey is the static
// fallback; a stored credential from Tokens takes precedence on every request.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to a provider that models video generation as an asynchronous
// task: one call creates the task, a separate endpoint reports its status.
// Polling cadence is the caller's responsibility; PollStatus never loops.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	tokens     TokenSource
	httpClient *http.Client
	logger     *infra.Logger
}

// CreateRequest animates a still image (or a bare prompt) into a short clip.
type CreateRequest struct {
	Prompt   string
	ImageURL string
	Duration int
}

// StatusResponse is the normalized outcome of one status poll.
type StatusResponse struct {
	Status       domain.TaskStatus
	ResultURL    string
	ErrorMessage string
}

type createTaskPayload struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type createTaskResponse struct {
	TaskID  string `json:"task_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type taskStatusResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

// NewClient constructs a video task client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("video: base url is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "svd-xt"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		tokens:     opts.Tokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreateTask submits a new video generation task and returns the opaque task
// id issued by the backend. Ids are never constructed locally.
func (c *Client) CreateTask(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.ImageURL) == "" {
		return "", fmt.Errorf("video: prompt or image url is required")
	}
	body, err := json.Marshal(createTaskPayload{
		Model:    c.model,
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Duration: req.Duration,
	})
	if err != nil {
		return "", fmt.Errorf("video: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("video: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEnqueue, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrEnqueue, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrEnqueue, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded createTaskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrEnqueue, err)
	}
	if decoded.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id (%s)", domain.ErrEnqueue, decoded.Message)
	}
	c.logger.Debug().Str("task_id", decoded.TaskID).Str("model", c.model).Msg("video: task created")
	return decoded.TaskID, nil
}

// PollStatus performs a single status round-trip for a task.
func (c *Client) PollStatus(ctx context.Context, taskID string) (*StatusResponse, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, fmt.Errorf("video: task id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("video: build status request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: poll status: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("video: read status: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("video: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded taskStatusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	status, err := mapStatus(decoded.Status)
	if err != nil {
		return nil, err
	}
	out := &StatusResponse{Status: status, ResultURL: decoded.VideoURL, ErrorMessage: decoded.Error}
	if status == domain.TaskStatusSuccess && out.ResultURL == "" {
		return nil, fmt.Errorf("%w: succeeded task without video url", domain.ErrMalformedResponse)
	}
	if status == domain.TaskStatusFailed && out.ErrorMessage == "" {
		out.ErrorMessage = "generation failed"
	}
	return out, nil
}

// authorize resolves the bearer token at call time so a credential stored via
// the settings surface takes effect without a restart.
func (c *Client) authorize(req *http.Request) {
	token := c.apiKey
	if c.tokens != nil {
		stored, err := c.tokens.Token(req.Context(), CredentialProvider)
		if err != nil {
			c.logger.Warn().Err(err).Msg("video: token lookup failed, using configured key")
		} else if stored != "" {
			token = stored
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func mapStatus(raw string) (domain.TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "pending", "submitted":
		return domain.TaskStatusQueued, nil
	case "processing", "running", "generating", "in_progress":
		return domain.TaskStatusGenerating, nil
	case "succeeded", "success", "completed", "done":
		return domain.TaskStatusSuccess, nil
	case "failed", "error", "cancelled":
		return domain.TaskStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown task status %q", domain.ErrMalformedResponse, raw)
	}
}
