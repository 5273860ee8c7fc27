package assessments

import (
	"time"
)

// ID tipe untuk Run
type RunID string

// Category enum untuk plugin/run classification
type Category string

const (
	CategorySecurity   Category = "security"
	CategoryCompliance Category = "compliance"
	CategoryQuality    Category = "quality"
)

// Status enum. State machine: pending -> running -> {completed|failed}.
// running is re-entered on every retry attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status may never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition validates a status edge.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusRunning || next == StatusPending
	default:
		return false
	}
}

// Reason enum
type Reason string

const (
	ReasonOnUpload            Reason = "on_upload"
	ReasonManual              Reason = "manual"
	ReasonScheduled           Reason = "scheduled"
	ReasonDependencyTriggered Reason = "dependency_triggered"
)

// Aggregate Root: Run. One immutable record of a plugin execution attempt's
// eventual outcome. Terminal rows are never edited; corrections insert a new row.
type Run struct {
	ID            RunID     `json:"id"`
	TenantID      string    `json:"tenant_id"`
	SBOMID        string    `json:"sbom_id"`
	PluginName    string    `json:"plugin_name"`
	PluginVersion string    `json:"plugin_version"`
	Category      Category  `json:"category"`
	ConfigHash    string    `json:"config_hash"`
	Reason        Reason    `json:"reason"`
	Status        Status    `json:"status"`
	Attempt       int       `json:"attempt"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string    `json:"error,omitempty"`
	TriggeredBy   string    `json:"triggered_by,omitempty"` // empty means automated
	InputDigest   string    `json:"input_digest,omitempty"`
	ReportURL     string    `json:"report_url,omitempty"`
	Result        *Result   `json:"result,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Passing reports whether this run counts toward the public passing set:
// completed with zero failures and zero errors. Pending, running, failed and
// completed-with-failures runs are never surfaced as passing.
func (r *Run) Passing() bool {
	if r.Status != StatusCompleted || r.Result == nil {
		return false
	}
	return r.Result.Summary.Fail == 0 && r.Result.Summary.Error == 0
}
