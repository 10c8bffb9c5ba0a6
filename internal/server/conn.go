package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"spool/internal/logging"
	"spool/internal/services"
	"spool/internal/session"
)

type connHandler struct {
	server  *Server
	conn    net.Conn
	sess    *session.Session
	logger  *slog.Logger
	writeMu sync.Mutex
}

func (s *Server) handle(conn net.Conn) {
	if !s.trackConn(conn) {
		return
	}
	defer s.untrackConn(conn)

	sess := session.New()
	handler := &connHandler{
		server: s,
		conn:   conn,
		sess:   sess,
		logger: s.logger.With(logging.String(logging.FieldConnID, sess.ID())),
	}
	s.activeConns.Add(1)
	handler.logger.Info("client connected", logging.String("remote", conn.RemoteAddr().String()))

	defer func() {
		// Disconnect discards the in-memory session; dispatched runs keep
		// going and the on-disk spool files survive for retry.
		sess.Reset()
		s.activeConns.Add(-1)
		_ = conn.Close()
		handler.logger.Info("client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), s.maxFrameBytes())

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			handler.logger.Warn("malformed event frame", logging.Error(err))
			continue
		}
		handler.dispatch(event)

		select {
		case <-s.ctx.Done():
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		handler.logger.Warn("connection read failed", logging.Error(err))
	}
}

// maxChunksPerFrame bounds how many chunk payloads one event line may
// carry; the scanner buffer is sized for that many maximum-size chunks.
const maxChunksPerFrame = 8

// maxFrameBytes bounds one event line. Each chunk expands to 4/3 of its
// byte size under base64, plus quoting and comma per array element.
func (s *Server) maxFrameBytes() int {
	max := s.maxChunkBytes
	if max <= 0 {
		max = 4 << 20
	}
	encoded := (max/3+1)*4 + 4
	return encoded*maxChunksPerFrame + 64*1024
}

func (h *connHandler) dispatch(event Event) {
	switch event.Type {
	case EventVideoChunks:
		h.onChunks(event)
	case EventProcessVideo:
		h.onProcess(event)
	case EventDeleteVideo:
		h.onDelete(event)
	default:
		h.logger.Warn("unknown event type", logging.String("type", event.Type))
	}
}

func (h *connHandler) onChunks(event Event) {
	if event.Filename == "" || len(event.Chunks) == 0 {
		h.logger.Warn("chunk event missing filename or payload")
		return
	}
	if err := h.sess.NoteChunks(event.Filename, len(event.Chunks)); err != nil {
		h.logger.Warn("chunk event rejected", logging.Error(err))
		return
	}
	for _, chunk := range event.Chunks {
		if max := h.server.maxChunkBytes; max > 0 && len(chunk) > max {
			h.logger.Warn("oversized chunk dropped",
				logging.String(logging.FieldFilename, event.Filename),
				logging.Int("chunk_bytes", len(chunk)))
			continue
		}
		if err := h.server.chunks.Append(event.Filename, chunk); err != nil {
			h.logger.Error("chunk append failed",
				logging.String(logging.FieldFilename, event.Filename),
				logging.Error(err))
			return
		}
	}
}

func (h *connHandler) onProcess(event Event) {
	if event.Filename == "" || event.UserID == "" {
		h.logger.Warn("process event missing filename or user id")
		return
	}
	if err := h.sess.BeginProcessing(event.Filename); err != nil {
		h.logger.Warn("process event rejected", logging.Error(err))
		return
	}

	// The run is detached from the connection lifetime: it gets the server's
	// uncancelable context so a disconnect or shutdown never aborts external
	// calls already underway. Close still waits for it via the wait group.
	runCtx := services.WithConnID(context.WithoutCancel(h.server.ctx), h.sess.ID())
	h.server.dispatchedRuns.Add(1)
	h.server.wg.Add(1)
	go func() {
		defer h.server.wg.Done()
		defer h.sess.EndProcessing()
		if err := h.server.runs.Upload(runCtx, event.Filename, event.UserID); err != nil {
			// Upload failures are silent to the client; the backend's state
			// is the channel of truth for recording status.
			h.logger.Debug("upload run failed", logging.Error(err))
		}
	}()
}

func (h *connHandler) onDelete(event Event) {
	if event.Filename == "" {
		h.logger.Warn("delete event missing filename")
		h.sendDeletedAck(false, "filename required")
		return
	}
	if err := h.sess.BeginDeleting(event.Filename); err != nil {
		h.logger.Warn("delete event rejected", logging.Error(err))
		h.sendDeletedAck(false, err.Error())
		return
	}
	defer h.sess.EndDeleting()

	runCtx := services.WithConnID(context.WithoutCancel(h.server.ctx), h.sess.ID())
	if err := h.server.runs.Delete(runCtx, event.Filename, event.VideoID); err != nil {
		h.sendDeletedAck(false, err.Error())
		return
	}
	h.sendDeletedAck(true, "")
}

func (h *connHandler) sendDeletedAck(success bool, message string) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	ack := DeletedAck{Type: EventVideoDeleted, Success: success, Error: message}
	encoder := json.NewEncoder(h.conn)
	if err := encoder.Encode(ack); err != nil {
		h.logger.Warn("acknowledgment write failed", logging.Error(err))
	}
}
