package journal_test

import (
	"context"
	"testing"

	"spool/internal/journal"
	"spool/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	id, err := store.Begin(ctx, journal.KindUpload, "rec1.webm", "user-1")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected run ID to be assigned")
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Kind != journal.KindUpload || run.Filename != "rec1.webm" || run.UserID != "user-1" {
		t.Fatalf("unexpected run: %#v", run)
	}
	if run.Outcome != journal.OutcomeRunning {
		t.Fatalf("expected running outcome, got %q", run.Outcome)
	}
}

func TestStageAndFinishLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	id, err := store.Begin(ctx, journal.KindUpload, "rec2.webm", "user-2")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if err := store.SetStage(ctx, id, "upload", "PRO", 1024); err != nil {
		t.Fatalf("SetStage failed: %v", err)
	}
	if err := store.MarkTranscribed(ctx, id); err != nil {
		t.Fatalf("MarkTranscribed failed: %v", err)
	}
	if err := store.Finish(ctx, id, journal.OutcomeOK, "cleanup", ""); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Plan != "PRO" || run.SizeBytes != 1024 {
		t.Fatalf("expected stage metadata recorded, got %#v", run)
	}
	if !run.Transcribed {
		t.Fatal("expected run marked transcribed")
	}
	if run.Outcome != journal.OutcomeOK || run.Stage != "cleanup" {
		t.Fatalf("unexpected terminal state: %#v", run)
	}
}

func TestFinishRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	id, err := store.Begin(ctx, journal.KindDelete, "rec3.webm", "")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Finish(ctx, id, journal.OutcomeFailed, "object-delete", "access denied"); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if runs[0].Outcome != journal.OutcomeFailed || runs[0].ErrorMessage != "access denied" {
		t.Fatalf("unexpected run: %#v", runs[0])
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	for _, name := range []string{"a.webm", "b.webm", "c.webm"} {
		if _, err := store.Begin(ctx, journal.KindUpload, name, "u"); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit applied, got %d runs", len(runs))
	}
	if runs[0].Filename != "c.webm" || runs[1].Filename != "b.webm" {
		t.Fatalf("expected newest first, got %q then %q", runs[0].Filename, runs[1].Filename)
	}
}

func TestSummarizeCountsOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	okID, err := store.Begin(ctx, journal.KindUpload, "ok.webm", "u")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Finish(ctx, okID, journal.OutcomeOK, "cleanup", ""); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	failedID, err := store.Begin(ctx, journal.KindDelete, "gone.webm", "")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Finish(ctx, failedID, journal.OutcomeFailed, "object-delete", "boom"); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := store.Begin(ctx, journal.KindUpload, "live.webm", "u"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Total != 3 || summary.OK != 1 || summary.Failed != 1 || summary.Running != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}
