package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"spool/internal/chunkstore"
	"spool/internal/config"
	"spool/internal/logging"
)

// Pipeline is the contract the dispatcher needs from the run executor.
type Pipeline interface {
	Upload(ctx context.Context, filename, userID string) error
	Delete(ctx context.Context, filename, videoID string) error
}

// Server listens for client recording connections.
type Server struct {
	chunks   *chunkstore.Store
	runs     Pipeline
	logger   *slog.Logger
	listener net.Listener

	maxChunkBytes int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	activeConns    atomic.Int64
	dispatchedRuns atomic.Int64
}

// NewServer binds the event channel listener.
func NewServer(ctx context.Context, cfg config.Ingest, chunks *chunkstore.Store, runs Pipeline, logger *slog.Logger) (*Server, error) {
	if chunks == nil {
		return nil, errors.New("server requires a chunk store")
	}
	if runs == nil {
		return nil, errors.New("server requires a pipeline")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := net.Listen("tcp", cfg.Bind)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Bind, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		chunks:        chunks,
		runs:          runs,
		logger:        logging.NewComponentLogger(logger, "server"),
		listener:      listener,
		maxChunkBytes: cfg.MaxChunkBytes,
		ctx:           serverCtx,
		cancel:        cancel,
		conns:         make(map[net.Conn]struct{}),
	}, nil
}

// Addr reports the bound listener address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveConnections reports how many client connections are currently open.
func (s *Server) ActiveConnections() int64 {
	return s.activeConns.Load()
}

// DispatchedRuns reports how many upload runs have been dispatched since start.
func (s *Server) DispatchedRuns() int64 {
	return s.dispatchedRuns.Load()
}

// Serve accepts client connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Info("event channel listening", logging.String("addr", s.Addr()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handle(c)
			}(conn)
		}
	}()
}

// Close stops accepting connections, closes open client connections so
// handlers parked on reads unblock, and waits for handlers and dispatched
// runs to drain.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
}

// trackConn registers a client connection for shutdown. A connection
// accepted after cancellation is closed on the spot.
func (s *Server) trackConn(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ctx.Err() != nil {
		_ = conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}
