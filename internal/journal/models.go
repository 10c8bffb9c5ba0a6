package journal

import "time"

// Kind distinguishes the two pipeline families.
type Kind string

const (
	KindUpload Kind = "upload"
	KindDelete Kind = "delete"
)

// Outcome labels how a run ended.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           int64
	Kind         Kind
	Filename     string
	UserID       string
	Plan         string
	SizeBytes    int64
	Stage        string
	Outcome      Outcome
	ErrorMessage string
	Transcribed  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates run counts for status reporting.
type Summary struct {
	Total   int
	Running int
	OK      int
	Failed  int
}
