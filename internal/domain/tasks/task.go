package tasks

import (
	"context"
	"time"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

// Task is one unit of assessment work: run one plugin against one SBOM under
// one effective configuration.
type Task struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	SBOMID     string         `json:"sbom_id"`
	PluginName string         `json:"plugin_name"`
	Config     map[string]any `json:"config,omitempty"`
	ConfigHash string         `json:"config_hash"`
	Reason     domain.Reason  `json:"reason"`
	Attempt    int            `json:"attempt"`
	// TriggeredBy is the user or token behind a manual trigger; empty means
	// automated.
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// Queue port. Delivery is at-least-once: workers must tolerate redelivery by
// re-checking run state before doing expensive work.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	// EnqueueAfter schedules t to become due after delay; the delay between a
	// retry-later signal and the next attempt lives here.
	EnqueueAfter(ctx context.Context, t Task, delay time.Duration) error
}
