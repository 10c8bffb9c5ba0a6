package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
	"spool/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Client talks to the OpenAI-compatible audio and chat endpoints.
type Client struct {
	apiKey             string
	baseURL            string
	transcriptionModel string
	completionModel    string
	httpClient         *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client from configuration.
func NewClient(cfg config.OpenAI, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		apiKey:             strings.TrimSpace(cfg.APIKey),
		baseURL:            strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		transcriptionModel: cfg.TranscriptionModel,
		completionModel:    cfg.CompletionModel,
		httpClient:         &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe submits the recording audio and returns the plain-text
// transcript. The caller enforces the service's input size cap.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if err := c.check("transcribe"); err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("openai transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("openai transcribe: copy audio: %w", err)
	}
	if err := form.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("openai transcribe: write model field: %w", err)
	}
	if err := form.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("openai transcribe: write format field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai transcribe: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("openai transcribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "openai", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "openai", "transcribe", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrRemoteRejected, "openai", "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	transcript := strings.TrimSpace(string(payload))
	if transcript == "" {
		return "", services.Wrap(services.ErrValidation, "openai", "transcribe", "empty transcript", nil)
	}
	return transcript, nil
}

// TitleSummary is the structured result generated from a transcript.
type TitleSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Raw     string `json:"-"`
}

// GenerateTitleSummary asks the chat endpoint for a JSON title/summary
// derived from the transcript.
func (c *Client) GenerateTitleSummary(ctx context.Context, transcript string) (TitleSummary, error) {
	var empty TitleSummary
	if err := c.check("title summary"); err != nil {
		return empty, err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return empty, services.Wrap(services.ErrValidation, "openai", "title summary", "transcript required", nil)
	}

	request := chatCompletionRequest{
		Model: c.completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: TitleSummaryPrompt},
			{Role: "user", Content: transcript},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return empty, fmt.Errorf("openai title summary: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("openai title summary: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "openai", "title summary", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "openai", "title summary", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(services.ErrRemoteRejected, "openai", "title summary",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return empty, services.Wrap(services.ErrValidation, "openai", "title summary", "decode response", err)
	}
	if completion.Error != nil {
		return empty, services.Wrap(services.ErrRemoteRejected, "openai", "title summary",
			strings.TrimSpace(completion.Error.Message), nil)
	}
	if len(completion.Choices) == 0 {
		return empty, services.Wrap(services.ErrValidation, "openai", "title summary", "empty choices", nil)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return empty, services.Wrap(services.ErrValidation, "openai", "title summary", "empty content", nil)
	}

	var parsed TitleSummary
	parsed.Raw = content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return empty, services.Wrap(services.ErrValidation, "openai", "title summary", "parse payload", err)
	}
	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	return parsed, nil
}

func (c *Client) check(operation string) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, "openai", operation, "api key required", nil)
	}
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "openai", operation, "base URL required", nil)
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
