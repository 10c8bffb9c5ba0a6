package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spool/internal/config"
	"spool/internal/services"
)

func testConfig(baseURL string) config.OpenAI {
	return config.OpenAI{
		APIKey:             "sk-test",
		BaseURL:            baseURL,
		TranscriptionModel: "whisper-1",
		CompletionModel:    "gpt-3.5-turbo",
	}
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	var gotModel, gotFormat string
	var gotAudio []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		gotAudio, _ = io.ReadAll(file)
		_, _ = io.WriteString(w, "  hello from the recording \n")
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	transcript, err := client.Transcribe(context.Background(), "rec1.webm", strings.NewReader("webm-bytes"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if transcript != "hello from the recording" {
		t.Fatalf("transcript = %q", transcript)
	}
	if gotModel != "whisper-1" || gotFormat != "text" {
		t.Fatalf("model/format = %q/%q", gotModel, gotFormat)
	}
	if string(gotAudio) != "webm-bytes" {
		t.Fatalf("audio = %q", gotAudio)
	}
}

func TestTranscribeRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"file too large"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Transcribe(context.Background(), "rec1.webm", strings.NewReader("x"))
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestGenerateTitleSummaryParsesStructuredContent(t *testing.T) {
	var gotRequest chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"title":"Sprint demo","summary":"A walkthrough of the new editor."}`}},
			},
		})
	}))
	defer server.Close()

	result, err := NewClient(testConfig(server.URL)).GenerateTitleSummary(context.Background(), "we demo the editor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Title != "Sprint demo" {
		t.Fatalf("title = %q", result.Title)
	}
	if result.Summary != "A walkthrough of the new editor." {
		t.Fatalf("summary = %q", result.Summary)
	}
	if result.Raw == "" {
		t.Fatal("raw content missing")
	}
	if gotRequest.ResponseFormat["type"] != "json_object" {
		t.Fatalf("response_format = %v", gotRequest.ResponseFormat)
	}
	if len(gotRequest.Messages) != 2 || gotRequest.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotRequest.Messages)
	}
	if gotRequest.Messages[1].Content != "we demo the editor" {
		t.Fatalf("user message = %q", gotRequest.Messages[1].Content)
	}
}

func TestGenerateTitleSummaryMalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "not json at all"}},
			},
		})
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).GenerateTitleSummary(context.Background(), "transcript")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	cfg := testConfig("https://api.openai.com/v1")
	cfg.APIKey = ""
	_, err := NewClient(cfg).Transcribe(context.Background(), "rec1.webm", strings.NewReader("x"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
