package recorder

import "time"

// CheckEvent is one domain check within a run.
type CheckEvent struct {
	RunID     string
	CheckedAt time.Time
	Domain    string
	Outcome   string
	Price     string // empty when the fetch failed
	Delta     string
	Attempts  int
	Error     string
}

// RunEvent summarizes a finished run.
type RunEvent struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	Succeeded  int
	Failed     int
	Changed    int
	Persisted  bool
	Error      string
}

// Recorder keeps an audit journal of runs. It is write-only: the price
// history file stays the source of truth for change detection.
type Recorder interface {
	RecordCheck(evt *CheckEvent) error
	RecordRun(evt *RunEvent) error
	Close() error
}
