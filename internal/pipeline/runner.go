package pipeline

import (
	"context"
	"io"
	"log/slog"

	"spool/internal/chunkstore"
	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/services/backend"
	"spool/internal/services/openai"
)

// ContentTypeWebM is the media type every recording is stored under.
const ContentTypeWebM = "video/webm"

// Backend is the authoritative recording backend the runs report to.
type Backend interface {
	NotifyProcessing(ctx context.Context, userID, filename string) (backend.ProcessingResult, error)
	NotifyTranscribed(ctx context.Context, userID, filename, content, transcript string) error
	NotifyComplete(ctx context.Context, userID, filename string) error
}

// ObjectStore holds finished recordings under their filename key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
}

// EdgeCache purges cached copies of deleted recordings.
type EdgeCache interface {
	Invalidate(ctx context.Context, key string) error
}

// Transcriber produces transcripts and derived title/summary content.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	GenerateTitleSummary(ctx context.Context, transcript string) (openai.TitleSummary, error)
}

// Deps collects the collaborators a Runner needs.
type Deps struct {
	Chunks      *chunkstore.Store
	Backend     Backend
	ObjectStore ObjectStore
	EdgeCache   EdgeCache
	Transcriber Transcriber
	Journal     *journal.Store
	Logger      *slog.Logger

	// MaxTranscribeBytes caps transcription input; recordings at or above
	// the cap skip the sub-run entirely.
	MaxTranscribeBytes int64
}

// Runner executes upload and deletion runs with strictly ordered stages.
type Runner struct {
	chunks       *chunkstore.Store
	backend      Backend
	objects      ObjectStore
	cache        EdgeCache
	transcriber  Transcriber
	journal      *journal.Store
	logger       *slog.Logger
	maxTranscode int64
}

// NewRunner builds a Runner from its dependencies.
func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	maxBytes := deps.MaxTranscribeBytes
	if maxBytes <= 0 {
		maxBytes = 25_000_000
	}
	return &Runner{
		chunks:       deps.Chunks,
		backend:      deps.Backend,
		objects:      deps.ObjectStore,
		cache:        deps.EdgeCache,
		transcriber:  deps.Transcriber,
		journal:      deps.Journal,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
		maxTranscode: maxBytes,
	}
}
