package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"spool/internal/chunkstore"
	"spool/internal/config"
	"spool/internal/journal"
	"spool/internal/logging"
	"spool/internal/server"
)

// Daemon coordinates the ingest server and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	chunks  *chunkstore.Store
	journal *journal.Store
	server  *server.Server

	lockPath string
	lock     *flock.Flock
	running  bool
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	PID               int
	ListenAddr        string
	ActiveConnections int64
	DispatchedRuns    int64
	UploadDir         string
	JournalDBPath     string
	LockFilePath      string
	Runs              journal.Summary
}

// New constructs a daemon from initialized dependencies.
func New(cfg *config.Config, chunks *chunkstore.Store, jr *journal.Store, srv *server.Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || chunks == nil || srv == nil {
		return nil, errors.New("daemon requires config, chunk store, and server")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "spoold.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		chunks:   chunks,
		journal:  jr,
		server:   srv,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving client connections.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spool daemon instance is already running")
	}

	d.server.Serve()
	d.running = true
	d.logger.Info("spool daemon started",
		logging.String("addr", d.server.Addr()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running {
		return
	}

	d.server.Close()
	d.chunks.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running = false
	d.logger.Info("spool daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Status reports runtime information for operators.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running,
		PID:          os.Getpid(),
		UploadDir:    d.cfg.Paths.UploadDir,
		LockFilePath: d.lockPath,
	}
	if d.server != nil {
		status.ListenAddr = d.server.Addr()
		status.ActiveConnections = d.server.ActiveConnections()
		status.DispatchedRuns = d.server.DispatchedRuns()
	}
	if d.journal != nil {
		status.JournalDBPath = d.journal.Path()
		summary, err := d.journal.Summarize(ctx)
		if err != nil {
			d.logger.Warn("journal summary failed", logging.Error(err))
		} else {
			status.Runs = summary
		}
	}
	return status
}

// LogPath returns the daemon's log file location.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "spool.log")
}

// History returns the most recent pipeline runs.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Run, error) {
	if d.journal == nil {
		return nil, nil
	}
	return d.journal.List(ctx, limit)
}
