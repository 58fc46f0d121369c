package space

import (
	"bufio"
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

// Options configures a queued-inference space client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client speaks the enqueue+SSE protocol exposed by hosted inference spaces:
// POST {"data":[...]} returns an event id, then a GET on the result endpoint
// streams server-sent events until the job finishes.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *infra.Logger
}

type enqueueResponse struct {
	EventID string `json:"event_id"`
}

// StreamResult is the decoded payload of the final "complete" event.
type StreamResult struct {
	Data json.RawMessage
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("space: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
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
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit enqueues a job on the named endpoint. The payload is serialized as the
// positional "data" array the space expects. One submission is one attempt;
// retries are the caller's decision.
func (c *Client) Submit(ctx context.Context, endpoint string, data []any) (string, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return "", fmt.Errorf("space: encode payload: %w", err)
	}
	url := fmt.Sprintf("%s/call/%s", c.baseURL, strings.Trim(endpoint, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("space: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
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
	var decoded enqueueResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrEnqueue, err)
	}
	if decoded.EventID == "" {
		return "", fmt.Errorf("%w: empty event id", domain.ErrEnqueue)
	}
	c.logger.Debug().Str("endpoint", endpoint).Str("event_id", decoded.EventID).Msg("space: job enqueued")
	return decoded.EventID, nil
}

// Await fetches the result stream for a previously submitted job and scans it
// for the last "complete" event. An "error" event anywhere in the stream wins
// over any complete event and surfaces as domain.ErrQuotaExceeded. A complete
// event without a data line resolves to (nil, nil): no result, not a failure.
func (c *Client) Await(ctx context.Context, endpoint, eventID string) (*StreamResult, error) {
	url := fmt.Sprintf("%s/call/%s/%s", c.baseURL, strings.Trim(endpoint, "/"), eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("space: build result request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("space: fetch result stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("space: result status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	result, sawError, err := scanEventStream(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("space: read result stream: %w", err)
	}
	if sawError {
		return nil, fmt.Errorf("%w: remote backend denied the call", domain.ErrQuotaExceeded)
	}
	if result == nil {
		c.logger.Debug().Str("event_id", eventID).Msg("space: stream completed without data")
		return nil, nil
	}
	return result, nil
}

// SubmitAndAwait runs a full enqueue+stream exchange for one job.
func (c *Client) SubmitAndAwait(ctx context.Context, endpoint string, data []any) (*StreamResult, error) {
	eventID, err := c.Submit(ctx, endpoint, data)
	if err != nil {
		return nil, err
	}
	return c.Await(ctx, endpoint, eventID)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// scanEventStream walks a newline-delimited SSE body. Only the data line of the
// last complete event is semantically meaningful; an error event is sticky.
func scanEventStream(r io.Reader) (*StreamResult, bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		currentEvent string
		lastComplete []byte
		sawError     bool
	)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			if currentEvent == "error" {
				sawError = true
			}
		case strings.HasPrefix(line, "data:"):
			if currentEvent == "complete" {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if payload != "" && payload != "null" {
					lastComplete = []byte(payload)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, sawError, err
	}
	if sawError {
		return nil, true, nil
	}
	if lastComplete == nil {
		return nil, false, nil
	}
	return &StreamResult{Data: json.RawMessage(lastComplete)}, false, nil
}
