package assessments

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run lookup matches nothing.
var ErrNotFound = errors.New("assessment run not found")

// TransitionPatch carries the fields written alongside a status transition.
type TransitionPatch struct {
	Error       string
	Result      *Result
	ReportURL   string
	CompletedAt *time.Time
	// Attempt, when > 0, records the retry attempt entering RUNNING.
	Attempt int
}

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, r *Run) error

	// Transition updates status and patch fields. Implementations must refuse
	// to touch rows already in a terminal status.
	Transition(ctx context.Context, id RunID, next Status, patch TransitionPatch) error

	Get(ctx context.Context, id RunID) (*Run, error)

	// LatestPerPlugin returns one row per distinct plugin name for the given
	// SBOM: the row with the maximum created_at for that name. An SBOM can
	// have many rows per plugin (retries, re-runs, config changes); picking
	// any other row corrupts the status summary.
	LatestPerPlugin(ctx context.Context, sbomID string) ([]*Run, error)

	// All returns run history for an SBOM, newest first.
	All(ctx context.Context, sbomID string, limit int) ([]*Run, error)

	// LatestFor returns the newest run for (sbom, plugin, config hash),
	// or nil when none exists.
	LatestFor(ctx context.Context, sbomID, plugin, configHash string) (*Run, error)

	// CountAttempts counts rows for (sbom, plugin, config hash). The engine
	// uses it to number re-runs after a failure.
	CountAttempts(ctx context.Context, sbomID, plugin, configHash string) (int, error)
}

// ContentStore port (interface untuk penyimpanan dokumen + laporan)
type ContentStore interface {
	// Fetch returns the raw SBOM document stored under key.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// StoreReport persists a raw plugin report and returns its URL.
	StoreReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
