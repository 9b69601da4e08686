package types

import "time"

// CheckStatus represents the outcome of one pipeline execution
type CheckStatus string

const (
	// StatusUnchanged means the check completed and found no meaningful change
	StatusUnchanged CheckStatus = "unchanged"
	// StatusChanged means the check completed and detected a change
	StatusChanged CheckStatus = "changed"
	// StatusError means the check failed before a comparison could be made
	StatusError CheckStatus = "error"
)

// IsValid checks if the status value is valid
func (s CheckStatus) IsValid() bool {
	return s == StatusUnchanged || s == StatusChanged || s == StatusError
}

// CheckRecord is the append-only history entry for one check attempt.
// Records are never mutated after creation; they are deleted only by
// cascade when their monitor is deleted, or by history pruning.
type CheckRecord struct {
	ID         string      `json:"id"`
	MonitorID  string      `json:"monitor_id"`
	Status     CheckStatus `json:"status"`
	Value      string      `json:"value,omitempty"`      // extracted content snapshot
	Screenshot string      `json:"screenshot,omitempty"` // artifact path
	DiffImage  string      `json:"diff_image,omitempty"` // artifact path, visual changes only
	DiffText   string      `json:"diff_text,omitempty"`
	Summary    string      `json:"summary,omitempty"` // AI summary, empty when not requested or unavailable
	HTTPStatus *int        `json:"http_status,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CheckResult carries the mutable monitor fields a completed check
// writes back. Selector is non-nil only after a validated self-heal.
type CheckResult struct {
	LastCheck           time.Time
	LastValue           *string
	LastScreenshot      *string
	ConsecutiveFailures int
	Selector            *string
}

// HealthStatus is the scheduler's externally visible health surface
type HealthStatus struct {
	LastSuccessfulCheck *time.Time `json:"last_successful_check,omitempty"`
	ErrorCount          int64      `json:"error_count"`
	Healthy             bool       `json:"healthy"`
}
