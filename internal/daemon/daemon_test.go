package daemon_test

import (
	"context"
	"testing"

	"spool/internal/chunkstore"
	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/logging"
	"spool/internal/server"
	"spool/internal/testsupport"
)

type nopPipeline struct{}

func (nopPipeline) Upload(ctx context.Context, filename, userID string) error  { return nil }
func (nopPipeline) Delete(ctx context.Context, filename, videoID string) error { return nil }

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	chunks, err := chunkstore.New(cfg.Paths.UploadDir, 8, logging.NewNop())
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	srv, err := server.NewServer(context.Background(), cfg.Ingest, chunks, nopPipeline{}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	d, err := daemon.New(cfg, chunks, nil, srv, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.ListenAddr == "" {
		t.Fatal("expected listen address reported")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
}

func TestLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock to exclude second instance")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected lock released after stop, got %v", err)
	}
}
