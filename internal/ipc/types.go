package ipc

import "time"

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse confirms the daemon answered.
type PingResponse struct {
	PID int `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running           bool   `json:"running"`
	PID               int    `json:"pid"`
	ListenAddr        string `json:"listen_addr"`
	ActiveConnections int64  `json:"active_connections"`
	DispatchedRuns    int64  `json:"dispatched_runs"`
	UploadDir         string `json:"upload_dir"`
	JournalDBPath     string `json:"journal_db_path"`
	LockPath          string `json:"lock_path"`
	RunsTotal         int    `json:"runs_total"`
	RunsRunning       int    `json:"runs_running"`
	RunsOK            int    `json:"runs_ok"`
	RunsFailed        int    `json:"runs_failed"`
}

// HistoryRequest fetches recent pipeline runs.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// Run is the wire representation of one journal entry.
type Run struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	Filename     string    `json:"filename"`
	UserID       string    `json:"user_id"`
	Plan         string    `json:"plan"`
	SizeBytes    int64     `json:"size_bytes"`
	Stage        string    `json:"stage"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message"`
	Transcribed  bool      `json:"transcribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryResponse contains recent pipeline runs, newest first.
type HistoryResponse struct {
	Runs []Run `json:"runs"`
}

// LogTailRequest fetches log lines. A negative offset asks for the last
// Limit lines.
type LogTailRequest struct {
	Offset int64 `json:"offset"`
	Limit  int   `json:"limit"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
