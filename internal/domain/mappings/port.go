package mappings

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no mapping exists for a key.
var ErrNotFound = errors.New("external project mapping not found")

// Repository defines persistence for external project mappings.
type Repository interface {
	Get(ctx context.Context, releaseID, serverName string) (*ExternalProject, error)

	// GetOrCreate inserts m and returns it. When a concurrent writer won the
	// uniqueness race on (release, server), it re-reads and returns the
	// winning row instead. Callers always observe a consistent mapping.
	GetOrCreate(ctx context.Context, m *ExternalProject) (*ExternalProject, error)
}
