package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/services"
)

// Upload stage names recorded in the journal.
const (
	stageFinalize       = "finalize"
	stageNotifyStart    = "notify-processing"
	stagePut            = "object-put"
	stageTranscribe     = "transcribe"
	stageNotifyComplete = "notify-complete"
	stageCleanup        = "cleanup"
)

// Upload runs the full processing flow for a finalized recording. Stages are
// strictly ordered; a stage failure aborts the remaining stages and leaves
// the local file in place so a later process-video signal can retry from the
// same bytes. Only the cleanup stage removes the file, and only after the
// backend has acknowledged completion. The transcription sub-run is the one
// exception to abort semantics: its failures are logged and swallowed.
func (r *Runner) Upload(ctx context.Context, filename, userID string) error {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithFilename(ctx, filename)
	logger := logging.WithContext(ctx, r.logger)

	runID, err := r.journal.Begin(ctx, journal.KindUpload, filename, userID)
	if err != nil {
		logger.Warn("journal unavailable for run", logging.Error(err))
	}

	// Finalize first: it is the write-completion barrier for outstanding
	// chunk appends, and it is also how a recording with zero chunks is
	// detected before any collaborator call goes out.
	fctx := services.WithStage(ctx, stageFinalize)
	path, err := r.chunks.Finalize(fctx, filename)
	if err != nil {
		return r.failUpload(fctx, runID, err)
	}
	size, err := r.chunks.Size(filename)
	if err != nil {
		return r.failUpload(fctx, runID, err)
	}

	nctx := services.WithStage(ctx, stageNotifyStart)
	result, err := r.backend.NotifyProcessing(nctx, userID, filename)
	if err != nil {
		return r.failUpload(nctx, runID, err)
	}
	if jerr := r.journal.SetStage(ctx, runID, stageNotifyStart, result.Plan, size); jerr != nil {
		logger.Warn("journal stage update failed", logging.Error(jerr))
	}
	logger.Info("recording accepted for processing",
		logging.String(logging.FieldUserID, userID),
		logging.String("plan", result.Plan),
		logging.Int64("size_bytes", size))

	pctx := services.WithStage(ctx, stagePut)
	file, err := os.Open(path)
	if err != nil {
		return r.failUpload(pctx, runID, fmt.Errorf("open local asset: %w", err))
	}
	err = r.objects.Put(pctx, filename, ContentTypeWebM, file)
	file.Close()
	if err != nil {
		return r.failUpload(pctx, runID, err)
	}
	if jerr := r.journal.SetStage(ctx, runID, stagePut, "", 0); jerr != nil {
		logger.Warn("journal stage update failed", logging.Error(jerr))
	}

	tctx := services.WithStage(ctx, stageTranscribe)
	if r.runTranscription(tctx, logger, filename, userID, path, size, result.Plan) {
		if jerr := r.journal.MarkTranscribed(ctx, runID); jerr != nil {
			logger.Warn("journal stage update failed", logging.Error(jerr))
		}
	}

	cctx := services.WithStage(ctx, stageNotifyComplete)
	if err := r.backend.NotifyComplete(cctx, userID, filename); err != nil {
		return r.failUpload(cctx, runID, err)
	}

	if err := r.chunks.Remove(filename); err != nil {
		// The backend already acknowledged completion; the leftover file is
		// an operator concern, not a run failure.
		logger.Error("local cleanup failed", logging.Error(err))
	}

	if jerr := r.journal.Finish(ctx, runID, journal.OutcomeOK, stageCleanup, ""); jerr != nil {
		logger.Warn("journal finish failed", logging.Error(jerr))
	}
	logger.Info("upload run complete",
		logging.String(logging.FieldEventType, "upload_complete"),
		logging.String(logging.FieldUserID, userID))
	return nil
}

// failUpload reads the failing stage back off the stage-tagged context so
// the log line and the journal record name the same stage.
func (r *Runner) failUpload(ctx context.Context, runID int64, err error) error {
	stage, _ := services.StageFromContext(ctx)
	logger := logging.WithContext(ctx, r.logger)
	logger.Error("upload run aborted",
		logging.String(logging.FieldEventType, "upload_failure"),
		logging.String("outcome", services.Classify(err)),
		logging.Error(err))
	if jerr := r.journal.Finish(ctx, runID, journal.OutcomeFailed, stage, err.Error()); jerr != nil {
		logger.Warn("journal finish failed", logging.Error(jerr))
	}
	return err
}
