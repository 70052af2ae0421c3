package ledger

import (
	"encoding/json"
	"time"
)

// RunKind names the operation a run performed.
type RunKind string

const (
	RunFetch  RunKind = "fetch"
	RunFilter RunKind = "filter"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// OutcomeKind classifies what happened to one movie during a fetch run.
type OutcomeKind string

const (
	OutcomeDownloaded OutcomeKind = "downloaded"
	OutcomePresent    OutcomeKind = "present"
	OutcomeMissing    OutcomeKind = "missing"
	OutcomeFailed     OutcomeKind = "failed"
	// OutcomePlanned marks a download that a dry run would have attempted.
	OutcomePlanned OutcomeKind = "planned"
)

// Run is one fetch or filter invocation.
type Run struct {
	ID         string
	Kind       RunKind
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    json.RawMessage
	Error      string
}

// Outcome is the fate of a single movie id in a fetch run. Seq is the
// first-occurrence position of the id in the ratings log.
type Outcome struct {
	Seq        int
	MovieID    string
	Kind       OutcomeKind
	SourceURL  string
	Bytes      int64
	Error      string
	RecordedAt time.Time
}
