package domain

import "time"

// RunStatus is the state of one engine batch run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// EngineRun tracks a single execution of the classification and forecasting
// pipeline for a period. The trigger returns the run ID immediately; callers
// poll the status while the run executes in the background.
type EngineRun struct {
	ID           string     `json:"id" db:"id"`
	Period       string     `json:"period" db:"period"`
	Status       RunStatus  `json:"status" db:"status"`
	TotalItems   int        `json:"total_items" db:"total_items"`
	FallbackUsed int        `json:"fallback_used" db:"fallback_used"`
	Suggestions  int        `json:"suggestions" db:"suggestions"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage string     `json:"error_message" db:"error_message"`
}
