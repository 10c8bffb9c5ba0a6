package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"spool/internal/logging"
	"spool/internal/services"
)

// Store manages the local upload spool directory.
type Store struct {
	dir        string
	queueDepth int
	logger     *slog.Logger

	mu      sync.Mutex
	writers map[string]*fileWriter
	closed  bool
}

// New creates a store rooted at dir. queueDepth bounds how many chunk
// writes may be outstanding per filename before Append blocks.
func New(dir string, queueDepth int, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "chunkstore", "new", "upload directory required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		dir:        dir,
		queueDepth: queueDepth,
		logger:     logging.NewComponentLogger(logger, "chunkstore"),
		writers:    make(map[string]*fileWriter),
	}, nil
}

// Dir returns the spool directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path resolves filename inside the spool directory. Filenames are
// client-supplied; anything that would escape the directory is rejected.
func (s *Store) Path(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "chunkstore", "path", "filename required", nil)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", services.Wrap(services.ErrValidation, "chunkstore", "path", fmt.Sprintf("filename %q is not a bare name", filename), nil)
	}
	return filepath.Join(s.dir, name), nil
}

// Append queues chunk bytes for the named recording. The write lands on
// disk asynchronously; call Flush before reading the file back.
func (s *Store) Append(filename string, chunk []byte) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if len(chunk) == 0 {
		return nil
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	for {
		w, err := s.writerFor(filename, path)
		if err != nil {
			return err
		}
		ok, err := w.enqueue(context.Background(), writeRequest{data: buf})
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// The writer retired between lookup and enqueue (Finalize or Close
		// raced this append). Loop: a fresh writer takes the chunk as the
		// next recording's first bytes.
	}
}

// Flush blocks until every chunk queued for filename has been written and
// synced to disk. It is a no-op when no writer is active for the name.
func (s *Store) Flush(ctx context.Context, filename string) error {
	s.mu.Lock()
	w := s.writers[filename]
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.barrier(ctx)
}

// Finalize waits for outstanding writes, retires the writer, and returns
// the on-disk path for filename. services.ErrNotFound is returned when no
// chunk ever reached the spool for this name.
func (s *Store) Finalize(ctx context.Context, filename string) (string, error) {
	path, err := s.Path(filename)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	w := s.writers[filename]
	delete(s.writers, filename)
	s.mu.Unlock()

	if w != nil {
		flushErr := w.barrier(ctx)
		w.close()
		if flushErr != nil {
			return "", flushErr
		}
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "chunkstore", "finalize", fmt.Sprintf("no local file for %q", filename), nil)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}

// Size reports the current byte size of the local file for filename.
func (s *Store) Size(filename string) (int64, error) {
	path, err := s.Path(filename)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "chunkstore", "size", fmt.Sprintf("no local file for %q", filename), nil)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Exists reports whether a local file is present for filename.
func (s *Store) Exists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Remove deletes the local file for filename.
func (s *Store) Remove(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "chunkstore", "remove", fmt.Sprintf("no local file for %q", filename), nil)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Close shuts down all active writers after draining their queues.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	writers := make([]*fileWriter, 0, len(s.writers))
	for name, w := range s.writers {
		writers = append(writers, w)
		delete(s.writers, name)
	}
	s.mu.Unlock()

	for _, w := range writers {
		_ = w.barrier(context.Background())
		w.close()
	}
}

func (s *Store) writerFor(filename, path string) (*fileWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, services.Wrap(services.ErrValidation, "chunkstore", "append", "store closed", nil)
	}
	if w, ok := s.writers[filename]; ok {
		return w, nil
	}
	w := newFileWriter(path, s.queueDepth, s.logger.With(logging.String(logging.FieldFilename, filename)))
	s.writers[filename] = w
	return w, nil
}

type writeRequest struct {
	data []byte
	ack  chan error
}

// fileWriter serializes appends to one spool file. The file is opened
// lazily on the first chunk and kept open until the writer retires.
type fileWriter struct {
	path     string
	requests chan writeRequest
	done     chan struct{}
	logger   *slog.Logger

	// sendMu orders every channel send against close: senders hold the read
	// side, retirement takes the write side before closing the channel.
	sendMu  sync.RWMutex
	retired bool

	mu  sync.Mutex
	err error
}

func newFileWriter(path string, depth int, logger *slog.Logger) *fileWriter {
	w := &fileWriter{
		path:     path,
		requests: make(chan writeRequest, depth),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go w.run()
	return w
}

func (w *fileWriter) run() {
	defer close(w.done)

	var file *os.File
	defer func() {
		if file != nil {
			_ = file.Close()
		}
	}()

	for req := range w.requests {
		if req.ack != nil {
			if file != nil {
				if err := file.Sync(); err != nil {
					w.recordError(fmt.Errorf("sync %s: %w", w.path, err))
				}
			}
			req.ack <- w.takeError()
			continue
		}

		if w.stickyError() != nil {
			// Drop writes after a failure; the barrier reports it.
			continue
		}
		if file == nil {
			f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				w.recordError(fmt.Errorf("open %s: %w", w.path, err))
				continue
			}
			file = f
		}
		if _, err := file.Write(req.data); err != nil {
			w.recordError(fmt.Errorf("append %s: %w", w.path, err))
		}
	}
}

// enqueue hands a request to the writer goroutine. It reports false when
// the writer has retired and the request was not accepted.
func (w *fileWriter) enqueue(ctx context.Context, req writeRequest) (bool, error) {
	w.sendMu.RLock()
	defer w.sendMu.RUnlock()
	if w.retired {
		return false, nil
	}
	select {
	case w.requests <- req:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// barrier waits until every previously queued write is durable.
func (w *fileWriter) barrier(ctx context.Context) error {
	ack := make(chan error, 1)
	ok, err := w.enqueue(ctx, writeRequest{ack: ack})
	if err != nil {
		return err
	}
	if !ok {
		return w.stickyError()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *fileWriter) close() {
	w.sendMu.Lock()
	if w.retired {
		w.sendMu.Unlock()
		<-w.done
		return
	}
	w.retired = true
	w.sendMu.Unlock()
	close(w.requests)
	<-w.done
}

func (w *fileWriter) recordError(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
	w.logger.Error("spool write failed", logging.Error(err))
}

func (w *fileWriter) stickyError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *fileWriter) takeError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	return err
}
