package models

import "time"

// FetchCursor is the persisted progress-and-lock record for one source. At
// most one active run exists per source; InProgress acts as the mutex.
// CurrentPage is nil exactly when no paused run exists.
type FetchCursor struct {
	Source            string     `json:"source"`
	LastRunAt         time.Time  `json:"last_run_at"`
	CurrentPage       *int       `json:"current_page,omitempty"`
	InProgress        bool       `json:"in_progress"`
	LastError         string     `json:"last_error,omitempty"`
	LastCompleteRunAt *time.Time `json:"last_complete_run_at,omitempty"`
	TotalItemsSeen    int64      `json:"total_items_seen"`
}

// RunOutcome is the terminal state of one orchestrator invocation.
type RunOutcome string

// Run outcomes.
const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomePaused    RunOutcome = "paused"
	OutcomeFailed    RunOutcome = "failed"
	OutcomeSkipped   RunOutcome = "skipped"
)

// RunResult summarizes one orchestrator invocation.
type RunResult struct {
	RunID          string     `json:"run_id"`
	Outcome        RunOutcome `json:"outcome"`
	Pages          int        `json:"pages"`
	ItemsSeen      int        `json:"items_seen"`
	Created        int        `json:"created"`
	Updated        int        `json:"updated"`
	Unchanged      int        `json:"unchanged"`
	SkippedRecords int        `json:"skipped_records"`
	Error          string     `json:"error,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
}
