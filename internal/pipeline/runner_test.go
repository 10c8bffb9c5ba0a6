package pipeline_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"spool/internal/chunkstore"
	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/pipeline"
	"spool/internal/services"
	"spool/internal/services/backend"
	"spool/internal/services/openai"
	"spool/internal/testsupport"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	plan          string
	processingErr error
	transcribeErr error
	completeErr   error

	transcribedContent    string
	transcribedTranscript string
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) NotifyProcessing(ctx context.Context, userID, filename string) (backend.ProcessingResult, error) {
	f.record("processing")
	if f.processingErr != nil {
		return backend.ProcessingResult{}, f.processingErr
	}
	plan := f.plan
	if plan == "" {
		plan = "FREE"
	}
	return backend.ProcessingResult{Status: backend.StatusOK, Plan: plan}, nil
}

func (f *fakeBackend) NotifyTranscribed(ctx context.Context, userID, filename, content, transcript string) error {
	f.record("transcribe")
	if f.transcribeErr != nil {
		return f.transcribeErr
	}
	f.mu.Lock()
	f.transcribedContent = content
	f.transcribedTranscript = transcript
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) NotifyComplete(ctx context.Context, userID, filename string) error {
	f.record("complete")
	return f.completeErr
}

type fakeObjectStore struct {
	mu        sync.Mutex
	calls     []string
	putErr    error
	deleteErr error
	putBody   []byte
	putType   string
	putKey    string
}

func (f *fakeObjectStore) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeObjectStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	f.record("put")
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.putBody = data
	f.putType = contentType
	f.putKey = key
	f.mu.Unlock()
	return nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.record("delete")
	return f.deleteErr
}

type fakeCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCache) Invalidate(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

func (f *fakeCache) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranscriber struct {
	mu            sync.Mutex
	calls         []string
	transcript    string
	transcribeErr error
	summaryErr    error
}

func (f *fakeTranscriber) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	f.record("stt")
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", err
	}
	if f.transcript == "" {
		return "hello world", nil
	}
	return f.transcript, nil
}

func (f *fakeTranscriber) GenerateTitleSummary(ctx context.Context, transcript string) (openai.TitleSummary, error) {
	f.record("summary")
	if f.summaryErr != nil {
		return openai.TitleSummary{}, f.summaryErr
	}
	return openai.TitleSummary{
		Title:   "Hello",
		Summary: "A greeting.",
		Raw:     `{"title":"Hello","summary":"A greeting."}`,
	}, nil
}

type harness struct {
	chunks      *chunkstore.Store
	backend     *fakeBackend
	objects     *fakeObjectStore
	cache       *fakeCache
	transcriber *fakeTranscriber
	runner      *pipeline.Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	chunks, err := chunkstore.New(cfg.Paths.UploadDir, 8, logging.NewNop())
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	t.Cleanup(chunks.Close)

	h := &harness{
		chunks:      chunks,
		backend:     &fakeBackend{},
		objects:     &fakeObjectStore{},
		cache:       &fakeCache{},
		transcriber: &fakeTranscriber{},
	}
	h.runner = pipeline.NewRunner(pipeline.Deps{
		Chunks:      chunks,
		Backend:     h.backend,
		ObjectStore: h.objects,
		EdgeCache:   h.cache,
		Transcriber: h.transcriber,
		Logger:      logging.NewNop(),
	})
	return h
}

func (h *harness) appendAll(t *testing.T, filename string, chunks ...string) {
	t.Helper()
	for _, chunk := range chunks {
		if err := h.chunks.Append(filename, []byte(chunk)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestUploadFreePlanSkipsTranscription(t *testing.T) {
	h := newHarness(t)
	h.backend.plan = "FREE"
	h.appendAll(t, "rec1.webm", "a", "b", "c")

	if err := h.runner.Upload(context.Background(), "rec1.webm", "user-1"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	wantCalls := []string{"processing", "complete"}
	if got := h.backend.Calls(); len(got) != 2 || got[0] != wantCalls[0] || got[1] != wantCalls[1] {
		t.Fatalf("unexpected backend calls: %v", got)
	}
	if got := string(h.objects.putBody); got != "abc" {
		t.Fatalf("expected put body %q, got %q", "abc", got)
	}
	if h.objects.putType != pipeline.ContentTypeWebM {
		t.Fatalf("unexpected content type %q", h.objects.putType)
	}
	if h.objects.putKey != "rec1.webm" {
		t.Fatalf("unexpected object key %q", h.objects.putKey)
	}
	if calls := h.transcriber.Calls(); len(calls) != 0 {
		t.Fatalf("expected no transcription activity, got %v", calls)
	}
	if h.chunks.Exists("rec1.webm") {
		t.Fatal("expected local file removed after successful run")
	}
}

func TestUploadZeroChunksIssuesNoCollaboratorCalls(t *testing.T) {
	h := newHarness(t)

	err := h.runner.Upload(context.Background(), "ghost.webm", "user-1")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls := h.backend.Calls(); len(calls) != 0 {
		t.Fatalf("expected no backend calls, got %v", calls)
	}
	if calls := h.objects.Calls(); len(calls) != 0 {
		t.Fatalf("expected no object store calls, got %v", calls)
	}
}

func TestUploadAbortsWhenProcessingRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.processingErr = services.Wrap(services.ErrRemoteRejected, "backend", "notify processing", "status 500", nil)
	h.appendAll(t, "rec1.webm", "abc")

	err := h.runner.Upload(context.Background(), "rec1.webm", "user-1")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if calls := h.objects.Calls(); len(calls) != 0 {
		t.Fatalf("expected no object store calls after rejection, got %v", calls)
	}
	if !h.chunks.Exists("rec1.webm") {
		t.Fatal("expected local file retained after rejection")
	}
}

func TestUploadRetainsFileWhenPutFails(t *testing.T) {
	h := newHarness(t)
	h.objects.putErr = services.Wrap(services.ErrRemoteRejected, "objectstore", "put", "status 403", nil)
	h.appendAll(t, "rec1.webm", "abc")

	err := h.runner.Upload(context.Background(), "rec1.webm", "user-1")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected put failure to surface, got %v", err)
	}
	for _, call := range h.backend.Calls() {
		if call == "complete" {
			t.Fatal("notify-complete must not run after a failed upload")
		}
	}
	if !h.chunks.Exists("rec1.webm") {
		t.Fatal("expected local file retained for retry")
	}
}

func TestUploadProPlanTranscribes(t *testing.T) {
	h := newHarness(t)
	h.backend.plan = "PRO"
	h.transcriber.transcript = "the transcript"
	h.appendAll(t, "rec1.webm", "audio-bytes")

	if err := h.runner.Upload(context.Background(), "rec1.webm", "user-1"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if calls := h.transcriber.Calls(); len(calls) != 2 || calls[0] != "stt" || calls[1] != "summary" {
		t.Fatalf("unexpected transcriber calls: %v", calls)
	}
	wantBackend := []string{"processing", "transcribe", "complete"}
	got := h.backend.Calls()
	if len(got) != len(wantBackend) {
		t.Fatalf("unexpected backend calls: %v", got)
	}
	for i := range wantBackend {
		if got[i] != wantBackend[i] {
			t.Fatalf("unexpected backend call order: %v", got)
		}
	}
	if h.backend.transcribedTranscript != "the transcript" {
		t.Fatalf("unexpected transcript forwarded: %q", h.backend.transcribedTranscript)
	}
	if h.backend.transcribedContent == "" {
		t.Fatal("expected structured content forwarded")
	}
}

func TestUploadSkipsTranscriptionAtSizeCap(t *testing.T) {
	h := newHarness(t)
	h.backend.plan = "PRO"
	testsupport.WriteRecording(t, filepath.Join(h.chunks.Dir(), "big.webm"), 30_000_000)

	if err := h.runner.Upload(context.Background(), "big.webm", "user-1"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if calls := h.transcriber.Calls(); len(calls) != 0 {
		t.Fatalf("expected size guard to skip transcription, got %v", calls)
	}
	got := h.backend.Calls()
	if len(got) != 2 || got[0] != "processing" || got[1] != "complete" {
		t.Fatalf("expected completion path to run, got %v", got)
	}
	if h.chunks.Exists("big.webm") {
		t.Fatal("expected cleanup after successful run")
	}
}

func TestTranscriptionFailureDoesNotBlockCompletion(t *testing.T) {
	h := newHarness(t)
	h.backend.plan = "PRO"
	h.transcriber.transcribeErr = services.Wrap(services.ErrTransport, "openai", "transcribe", "timeout", nil)
	h.appendAll(t, "rec1.webm", "abc")

	if err := h.runner.Upload(context.Background(), "rec1.webm", "user-1"); err != nil {
		t.Fatalf("expected swallowed transcription failure, got %v", err)
	}
	got := h.backend.Calls()
	if len(got) != 2 || got[1] != "complete" {
		t.Fatalf("expected completion despite transcription failure, got %v", got)
	}
	if h.chunks.Exists("rec1.webm") {
		t.Fatal("expected cleanup to proceed")
	}
}

func TestCleanupOnlyAfterCompleteSucceeds(t *testing.T) {
	h := newHarness(t)
	h.backend.completeErr = services.Wrap(services.ErrRemoteRejected, "backend", "notify complete", "status 500", nil)
	h.appendAll(t, "rec1.webm", "abc")

	err := h.runner.Upload(context.Background(), "rec1.webm", "user-1")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected completion failure to surface, got %v", err)
	}
	if !h.chunks.Exists("rec1.webm") {
		t.Fatal("local file must survive a failed notify-complete")
	}
}

func TestFailingStageRecordedInJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	chunks, err := chunkstore.New(cfg.Paths.UploadDir, 8, logging.NewNop())
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	t.Cleanup(chunks.Close)
	store := testsupport.MustOpenJournal(t, cfg)

	objects := &fakeObjectStore{
		putErr: services.Wrap(services.ErrRemoteRejected, "objectstore", "put", "status 403", nil),
	}
	runner := pipeline.NewRunner(pipeline.Deps{
		Chunks:      chunks,
		Backend:     &fakeBackend{},
		ObjectStore: objects,
		Journal:     store,
		Logger:      logging.NewNop(),
	})

	if err := chunks.Append("rec1.webm", []byte("abc")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := runner.Upload(context.Background(), "rec1.webm", "user-1"); err == nil {
		t.Fatal("expected upload to fail")
	}

	runs, err := store.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one journaled run, got %d", len(runs))
	}
	if runs[0].Stage != "object-put" {
		t.Fatalf("journaled stage = %q, want %q", runs[0].Stage, "object-put")
	}
	if runs[0].Outcome != journal.OutcomeFailed {
		t.Fatalf("journaled outcome = %q, want failed", runs[0].Outcome)
	}
}

func TestDeleteRunsBothStepsInOrder(t *testing.T) {
	h := newHarness(t)

	if err := h.runner.Delete(context.Background(), "rec1.webm", "vid-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if calls := h.objects.Calls(); len(calls) != 1 || calls[0] != "delete" {
		t.Fatalf("unexpected object store calls: %v", calls)
	}
	if h.cache.Calls() != 1 {
		t.Fatalf("expected one invalidation, got %d", h.cache.Calls())
	}
}

func TestDeleteSkipsInvalidationWhenObjectDeleteFails(t *testing.T) {
	h := newHarness(t)
	h.objects.deleteErr = services.Wrap(services.ErrRemoteRejected, "objectstore", "delete", "access denied", nil)

	err := h.runner.Delete(context.Background(), "rec1.webm", "vid-1")
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected delete failure, got %v", err)
	}
	if h.cache.Calls() != 0 {
		t.Fatal("invalidation must not run after a failed object delete")
	}
}

func TestDeleteSurfacesInvalidationFailure(t *testing.T) {
	h := newHarness(t)
	h.cache.err = services.Wrap(services.ErrTransport, "edgecache", "invalidate", "timeout", nil)

	err := h.runner.Delete(context.Background(), "rec1.webm", "vid-1")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected invalidation failure, got %v", err)
	}
}
