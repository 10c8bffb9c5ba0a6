package pipeline

import (
	"context"

	"github.com/google/uuid"

	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/services"
)

// Deletion stage names recorded in the journal.
const (
	stageObjectDelete = "object-delete"
	stageInvalidate   = "invalidate"
)

// Delete removes a recording from the object store and then invalidates its
// edge-cache entry. The two steps are strictly ordered: invalidation is
// never attempted when the store delete failed. The returned error carries
// the triggering stage's failure; the caller turns it into the single
// client-visible acknowledgment.
func (r *Runner) Delete(ctx context.Context, filename, videoID string) error {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithFilename(ctx, filename)
	logger := logging.WithContext(ctx, r.logger)

	runID, err := r.journal.Begin(ctx, journal.KindDelete, filename, "")
	if err != nil {
		logger.Warn("journal unavailable for run", logging.Error(err))
	}

	dctx := services.WithStage(ctx, stageObjectDelete)
	if err := r.objects.Delete(dctx, filename); err != nil {
		logger.Error("object delete failed",
			logging.String(logging.FieldEventType, "delete_failure"),
			logging.String("video_id", videoID),
			logging.Error(err))
		if jerr := r.journal.Finish(ctx, runID, journal.OutcomeFailed, stageObjectDelete, err.Error()); jerr != nil {
			logger.Warn("journal finish failed", logging.Error(jerr))
		}
		return err
	}

	ictx := services.WithStage(ctx, stageInvalidate)
	if err := r.invalidate(ictx, filename); err != nil {
		logger.Error("edge cache invalidation failed",
			logging.String(logging.FieldEventType, "delete_failure"),
			logging.String("video_id", videoID),
			logging.Error(err))
		if jerr := r.journal.Finish(ctx, runID, journal.OutcomeFailed, stageInvalidate, err.Error()); jerr != nil {
			logger.Warn("journal finish failed", logging.Error(jerr))
		}
		return err
	}

	if jerr := r.journal.Finish(ctx, runID, journal.OutcomeOK, stageInvalidate, ""); jerr != nil {
		logger.Warn("journal finish failed", logging.Error(jerr))
	}
	logger.Info("recording deleted",
		logging.String(logging.FieldEventType, "delete_complete"),
		logging.String("video_id", videoID))
	return nil
}

// invalidate tolerates an absent edge cache: without a configured
// distribution there is nothing to purge.
func (r *Runner) invalidate(ctx context.Context, filename string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, filename)
}
