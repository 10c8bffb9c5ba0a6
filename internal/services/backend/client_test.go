package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"spool/internal/services"
)

func TestNotifyProcessingReturnsPlan(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 200, "plan": "PRO"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.NotifyProcessing(context.Background(), "user-7", "rec1.webm")
	if err != nil {
		t.Fatalf("notify processing: %v", err)
	}
	if result.Plan != PlanPro {
		t.Fatalf("plan = %q, want %q", result.Plan, PlanPro)
	}
	if gotPath != "/recording/user-7/processing" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["filename"] != "rec1.webm" {
		t.Fatalf("filename in body = %q", gotBody["filename"])
	}
}

func TestNotifyProcessingNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 500})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).NotifyProcessing(context.Background(), "user-7", "rec1.webm")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestNotifyCompleteHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL).NotifyComplete(context.Background(), "user-7", "rec1.webm")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestNotifyTranscribedSendsPayload(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording/user-7/transcribe" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 200})
	}))
	defer server.Close()

	err := NewClient(server.URL).NotifyTranscribed(context.Background(), "user-7", "rec1.webm",
		`{"title":"t","summary":"s"}`, "hello world")
	if err != nil {
		t.Fatalf("notify transcribed: %v", err)
	}
	if gotBody["transcript"] != "hello world" {
		t.Fatalf("transcript = %q", gotBody["transcript"])
	}
	if gotBody["content"] == "" {
		t.Fatal("content missing from payload")
	}
}

func TestRejectsMissingUserID(t *testing.T) {
	err := NewClient("https://app.example.com").NotifyComplete(context.Background(), " ", "rec1.webm")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL).NotifyProcessing(context.Background(), "user-7", "rec1.webm")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
