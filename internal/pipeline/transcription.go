package pipeline

import (
	"context"
	"log/slog"
	"os"

	"spool/internal/logging"
	"spool/internal/services/backend"
)

// runTranscription executes the conditional transcription sub-run and
// reports whether the backend accepted a transcript. The guard is a policy
// branch: anything other than a PRO plan with a recording under the input
// cap skips the sub-run without error. Failures inside the sub-run are
// logged and swallowed so the parent run's notify-complete and cleanup
// stages always proceed.
func (r *Runner) runTranscription(ctx context.Context, logger *slog.Logger, filename, userID, path string, size int64, plan string) bool {
	if r.transcriber == nil {
		return false
	}
	if plan != backend.PlanPro {
		logger.Debug("transcription skipped",
			logging.String("reason", "plan"),
			logging.String("plan", plan))
		return false
	}
	if size >= r.maxTranscode {
		logger.Info("transcription skipped",
			logging.String("reason", "size"),
			logging.Int64("size_bytes", size),
			logging.Int64("max_bytes", r.maxTranscode))
		return false
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Error("transcription open failed", logging.Error(err))
		return false
	}
	transcript, err := r.transcriber.Transcribe(ctx, filename, file)
	file.Close()
	if err != nil {
		logger.Error("transcription failed", logging.Error(err))
		return false
	}

	content, err := r.transcriber.GenerateTitleSummary(ctx, transcript)
	if err != nil {
		logger.Error("title/summary generation failed", logging.Error(err))
		return false
	}

	if err := r.backend.NotifyTranscribed(ctx, userID, filename, content.Raw, transcript); err != nil {
		logger.Error("transcript report failed", logging.Error(err))
		return false
	}

	logger.Info("transcript reported",
		logging.String(logging.FieldEventType, "transcribed"),
		logging.String("title", content.Title))
	return true
}
