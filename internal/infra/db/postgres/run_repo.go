package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

const runColumns = `id, tenant_id, sbom_id, plugin_name, plugin_version, category,
       config_hash, reason, status, attempt, started_at, completed_at,
       error, triggered_by, input_digest, report_url, result, created_at`

// Create inserts a new run row.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO assessment_runs
(id, tenant_id, sbom_id, plugin_name, plugin_version, category,
 config_hash, reason, status, attempt, started_at, completed_at,
 error, triggered_by, input_digest, report_url, result, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18);`

	var resultJSON []byte
	if run.Result != nil {
		b, err := json.Marshal(run.Result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		resultJSON = b
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.TenantID, run.SBOMID, run.PluginName, run.PluginVersion, run.Category,
		run.ConfigHash, run.Reason, run.Status, run.Attempt, run.StartedAt, run.CompletedAt,
		run.Error, run.TriggeredBy, run.InputDigest, run.ReportURL, resultJSON, created,
	)
	return err
}

// Transition updates nonterminal rows only.
func (r *RunRepository) Transition(ctx context.Context, id domain.RunID, next domain.Status, patch domain.TransitionPatch) error {
	const q = `
UPDATE assessment_runs
SET status = $1,
    attempt = GREATEST(attempt, $2),
    error = $3,
    completed_at = $4,
    report_url = $5,
    result = $6
WHERE id = $7 AND status IN ('pending','running');`

	var resultJSON []byte
	if patch.Result != nil {
		b, err := json.Marshal(patch.Result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		resultJSON = b
	}
	res, err := r.db.ExecContext(ctx, q,
		next, patch.Attempt, patch.Error, patch.CompletedAt, patch.ReportURL, resultJSON, id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM assessment_runs WHERE id=$1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("run %s already terminal (%s)", id, current)
	}
	return nil
}

// Get by ID
func (r *RunRepository) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM assessment_runs WHERE id=$1 LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// LatestPerPlugin uses DISTINCT ON, Postgres' native "newest row per group".
func (r *RunRepository) LatestPerPlugin(ctx context.Context, sbomID string) ([]*domain.Run, error) {
	q := `
SELECT DISTINCT ON (plugin_name) ` + runColumns + `
FROM assessment_runs
WHERE sbom_id = $1
ORDER BY plugin_name, created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, sbomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// All returns run history newest first.
func (r *RunRepository) All(ctx context.Context, sbomID string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + runColumns + `
FROM assessment_runs
WHERE sbom_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, sbomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// LatestFor returns the newest run for (sbom, plugin, config hash).
func (r *RunRepository) LatestFor(ctx context.Context, sbomID, plugin, configHash string) (*domain.Run, error) {
	q := `SELECT ` + runColumns + `
FROM assessment_runs
WHERE sbom_id = $1 AND plugin_name = $2 AND config_hash = $3
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, sbomID, plugin, configHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// CountAttempts counts rows for (sbom, plugin, config hash).
func (r *RunRepository) CountAttempts(ctx context.Context, sbomID, plugin, configHash string) (int, error) {
	const q = `
SELECT COUNT(*) FROM assessment_runs
WHERE sbom_id = $1 AND plugin_name = $2 AND config_hash = $3;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, sbomID, plugin, configHash).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var completedAt sql.NullTime
	var errMsg, triggeredBy, inputDigest, reportURL sql.NullString
	var resultJSON []byte
	if err := row.Scan(
		&run.ID, &run.TenantID, &run.SBOMID, &run.PluginName, &run.PluginVersion, &run.Category,
		&run.ConfigHash, &run.Reason, &run.Status, &run.Attempt, &run.StartedAt, &completedAt,
		&errMsg, &triggeredBy, &inputDigest, &reportURL, &resultJSON, &run.CreatedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	run.TriggeredBy = triggeredBy.String
	run.InputDigest = inputDigest.String
	run.ReportURL = reportURL.String
	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		var res domain.Result
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			log.Printf("postgres: skipping malformed run result payload: %v", err)
		} else {
			run.Result = &res
		}
	}
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*domain.Run, error) {
	var out []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
