package analyses

import (
	"context"
)

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, tenant, sbomID string, page, pageSize int) ([]*Analysis, error)
	LatestByRun(ctx context.Context, tenant, runID string) (*Analysis, error)
}
