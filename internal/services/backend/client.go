package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spool/internal/services"
)

// StatusOK is the success sentinel the backend returns in response bodies.
const StatusOK = 200

// PlanPro is the privileged plan tier entitled to transcription.
const PlanPro = "PRO"

const defaultHTTPTimeout = 15 * time.Second

// Client calls the authoritative recording backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the backend client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a backend API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ProcessingResult is the backend's answer to a notify-start call. Plan is
// the authoritative tier; the client-supplied value is never trusted.
type ProcessingResult struct {
	Status int    `json:"status"`
	Plan   string `json:"plan"`
}

// NotifyProcessing marks the recording as processing and returns the
// account's plan tier.
func (c *Client) NotifyProcessing(ctx context.Context, userID, filename string) (ProcessingResult, error) {
	var result ProcessingResult
	if err := c.post(ctx, "notify processing", userID, "processing", map[string]string{"filename": filename}, &result); err != nil {
		return ProcessingResult{}, err
	}
	if result.Status != StatusOK {
		return ProcessingResult{}, services.Wrap(services.ErrRemoteRejected, "backend", "notify processing",
			fmt.Sprintf("status %d", result.Status), nil)
	}
	return result, nil
}

// NotifyTranscribed forwards the generated title/summary payload and raw
// transcript for a recording.
func (c *Client) NotifyTranscribed(ctx context.Context, userID, filename, content, transcript string) error {
	var result struct {
		Status int `json:"status"`
	}
	body := map[string]string{
		"filename":   filename,
		"content":    content,
		"transcript": transcript,
	}
	if err := c.post(ctx, "notify transcribed", userID, "transcribe", body, &result); err != nil {
		return err
	}
	if result.Status != StatusOK {
		return services.Wrap(services.ErrRemoteRejected, "backend", "notify transcribed",
			fmt.Sprintf("status %d", result.Status), nil)
	}
	return nil
}

// NotifyComplete marks the recording as processed.
func (c *Client) NotifyComplete(ctx context.Context, userID, filename string) error {
	var result struct {
		Status int `json:"status"`
	}
	if err := c.post(ctx, "notify complete", userID, "complete", map[string]string{"filename": filename}, &result); err != nil {
		return err
	}
	if result.Status != StatusOK {
		return services.Wrap(services.ErrRemoteRejected, "backend", "notify complete",
			fmt.Sprintf("status %d", result.Status), nil)
	}
	return nil
}

func (c *Client) post(ctx context.Context, operation, userID, action string, payload any, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "backend", operation, "base URL required", nil)
	}
	if strings.TrimSpace(userID) == "" {
		return services.Wrap(services.ErrValidation, "backend", operation, "user id required", nil)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend %s: encode request: %w", operation, err)
	}
	endpoint := fmt.Sprintf("%s/recording/%s/%s", c.baseURL, userID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "backend", operation, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransport, "backend", operation, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrRemoteRejected, "backend", operation,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return services.Wrap(services.ErrValidation, "backend", operation, "decode response", err)
		}
	}
	return nil
}
