package plugins

import (
	"context"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

// Metadata identifies a plugin implementation.
type Metadata struct {
	Name     string
	Version  string
	Category domain.Category
}

// Input is everything a plugin receives for one invocation.
type Input struct {
	RunID     domain.RunID
	TenantID  string
	SBOMID    string
	ReleaseID string
	// Attempt is 0 on the first invocation and increments per retry-later
	// round trip.
	Attempt int
	// Content is the raw SBOM document.
	Content []byte
	// Config is the resolved tenant configuration (override merged over
	// plugin defaults) as a plain key/value map.
	Config map[string]any
	// Dependencies holds the latest sibling runs for the same SBOM, so
	// dependency-triggered plugins can read prerequisite outcomes.
	Dependencies []*domain.Run
}

// Plugin is the contract a plugin author implements. Assess either returns a
// result, a hard error, or a *assessments.RetryLaterError meaning "not done
// yet, call again after a delay".
type Plugin interface {
	Metadata() Metadata
	Assess(ctx context.Context, in Input) (*domain.Result, error)
}
