package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"spool/internal/services"
)

// State labels the phase a connection's recording session is in.
type State string

const (
	// StateIdle means no recording activity is attached to the connection.
	StateIdle State = "idle"
	// StateReceiving means chunk payloads are being accumulated for a filename.
	StateReceiving State = "receiving"
	// StateProcessing means an upload run has been dispatched for the session's
	// last finalized recording.
	StateProcessing State = "processing"
	// StateDeleting means a deletion run is in flight for the connection.
	StateDeleting State = "deleting"
)

// Session is the per-connection state machine. Each connection owns exactly
// one Session; sessions are never shared across connections. Starting chunks
// for a new filename implicitly retires the previous accumulator, matching
// the one-recording-at-a-time invariant.
type Session struct {
	mu       sync.Mutex
	id       string
	state    State
	filename string
	chunks   int
}

// New returns an idle session with a fresh identity.
func New() *Session {
	return &Session{
		id:    uuid.NewString(),
		state: StateIdle,
	}
}

// ID returns the session's unique identity.
func (s *Session) ID() string {
	return s.id
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Filename reports the recording the session last accumulated chunks for.
func (s *Session) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

// ChunkCount reports how many chunk payloads the current accumulation has seen.
func (s *Session) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// NoteChunks records receipt of chunk payloads for filename and moves the
// session into the receiving phase. A previously dispatched upload run stays
// detached; accumulating a new recording is allowed while it finishes.
// Chunks are rejected while a deletion run is in flight.
func (s *Session) NoteChunks(filename string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDeleting {
		return services.Wrap(services.ErrValidation, "session", "note chunks",
			fmt.Sprintf("chunks for %q rejected while deleting", filename), nil)
	}
	if s.state != StateReceiving || s.filename != filename {
		s.chunks = 0
	}
	s.state = StateReceiving
	s.filename = filename
	s.chunks += count
	return nil
}

// BeginProcessing resets the accumulator and moves the session into the
// processing phase. Only one run may be dispatched per session at a time.
func (s *Session) BeginProcessing(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateReceiving:
	default:
		return services.Wrap(services.ErrValidation, "session", "begin processing",
			fmt.Sprintf("cannot process %q while %s", filename, s.state), nil)
	}
	s.state = StateProcessing
	s.filename = filename
	s.chunks = 0
	return nil
}

// EndProcessing returns the session to idle once its upload run finishes.
// If a new recording started accumulating in the meantime the receiving
// phase wins and the call is a no-op.
func (s *Session) EndProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		s.state = StateIdle
		s.filename = ""
	}
}

// BeginDeleting moves the session into the deleting phase. Deletion is only
// reachable from idle; a delete signal mid-upload or mid-recording is
// rejected deterministically.
func (s *Session) BeginDeleting(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return services.Wrap(services.ErrValidation, "session", "begin deleting",
			fmt.Sprintf("cannot delete %q while %s", filename, s.state), nil)
	}
	s.state = StateDeleting
	s.filename = filename
	return nil
}

// EndDeleting returns the session to idle once its deletion run reported.
func (s *Session) EndDeleting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDeleting {
		s.state = StateIdle
		s.filename = ""
	}
}

// Reset discards all in-memory session state. Called on disconnect; any
// dispatched pipeline run keeps going because it is not bound to the
// connection's lifetime.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle
	s.filename = ""
	s.chunks = 0
}
