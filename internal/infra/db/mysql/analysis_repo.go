package mysql

import (
	"context"
	"database/sql"

	"github.com/sbomify/assessments/internal/domain/analyses"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save insert analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *analyses.Analysis) error {
	const q = `
INSERT INTO run_analyses (id, tenant_id, sbom_id, run_id, result, created_at)
VALUES (?,?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.TenantID, a.SBOMID, a.RunID, a.Result, a.CreatedAt)
	return err
}

// Paginate list analyses per tenant + sbom (newest first)
func (r *AnalysisRepository) Paginate(ctx context.Context, tenant, sbomID string, page, pageSize int) ([]*analyses.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, sbom_id, run_id, result, created_at
FROM run_analyses
WHERE tenant_id = ? AND sbom_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, sbomID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*analyses.Analysis
	for rows.Next() {
		var a analyses.Analysis
		if err := rows.Scan(&a.ID, &a.TenantID, &a.SBOMID, &a.RunID, &a.Result, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByRun returns the newest analysis for a run
func (r *AnalysisRepository) LatestByRun(ctx context.Context, tenant, runID string) (*analyses.Analysis, error) {
	const q = `
SELECT id, tenant_id, sbom_id, run_id, result, created_at
FROM run_analyses
WHERE tenant_id = ? AND run_id = ?
ORDER BY created_at DESC
LIMIT 1;
`
	var a analyses.Analysis
	err := r.db.QueryRowContext(ctx, q, tenant, runID).Scan(&a.ID, &a.TenantID, &a.SBOMID, &a.RunID, &a.Result, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
