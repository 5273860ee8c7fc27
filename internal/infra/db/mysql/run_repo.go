package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

const runColumns = `id, tenant_id, sbom_id, plugin_name, plugin_version, category,
       config_hash, reason, status, attempt, started_at, completed_at,
       error, triggered_by, input_digest, report_url, result, created_at`

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run row. Rows are append-only; corrections insert a
// new row rather than editing history.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO assessment_runs
(id, tenant_id, sbom_id, plugin_name, plugin_version, category,
 config_hash, reason, status, attempt, started_at, completed_at,
 error, triggered_by, input_digest, report_url, result, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);
`
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

// Transition updates status and patch fields. Rows already in a terminal
// status are immutable: the guard in the WHERE clause refuses them.
func (r *RunRepository) Transition(ctx context.Context, id domain.RunID, next domain.Status, patch domain.TransitionPatch) error {
	const q = `
UPDATE assessment_runs
SET status = ?,
    attempt = GREATEST(attempt, ?),
    error = ?,
    completed_at = ?,
    report_url = ?,
    result = ?
WHERE id = ? AND status IN ('pending','running');
`
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
		err := r.db.QueryRowContext(ctx, `SELECT status FROM assessment_runs WHERE id=?`, id).Scan(&current)
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
	q := `SELECT ` + runColumns + ` FROM assessment_runs WHERE id=? LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// LatestPerPlugin returns one row per distinct plugin name: the row with the
// maximum created_at for that name. An SBOM accumulates many rows per plugin
// (retries, re-runs, config changes); a naive DISTINCT over unordered fields
// would pick the wrong row and silently corrupt the status summary.
func (r *RunRepository) LatestPerPlugin(ctx context.Context, sbomID string) ([]*domain.Run, error) {
	q := `
SELECT r.id, r.tenant_id, r.sbom_id, r.plugin_name, r.plugin_version, r.category,
       r.config_hash, r.reason, r.status, r.attempt, r.started_at, r.completed_at,
       r.error, r.triggered_by, r.input_digest, r.report_url, r.result, r.created_at
FROM assessment_runs r
JOIN (
    SELECT plugin_name, MAX(created_at) AS max_created
    FROM assessment_runs
    WHERE sbom_id = ?
    GROUP BY plugin_name
) latest ON r.plugin_name = latest.plugin_name AND r.created_at = latest.max_created
WHERE r.sbom_id = ?
ORDER BY r.plugin_name;
`
	rows, err := r.db.QueryContext(ctx, q, sbomID, sbomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// All returns run history for an SBOM, newest first.
func (r *RunRepository) All(ctx context.Context, sbomID string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + runColumns + `
FROM assessment_runs
WHERE sbom_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, sbomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// LatestFor returns the newest run for (sbom, plugin, config hash), nil when
// none exists.
func (r *RunRepository) LatestFor(ctx context.Context, sbomID, plugin, configHash string) (*domain.Run, error) {
	q := `SELECT ` + runColumns + `
FROM assessment_runs
WHERE sbom_id = ? AND plugin_name = ? AND config_hash = ?
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
WHERE sbom_id = ? AND plugin_name = ? AND config_hash = ?;
`
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
	var res domain.Result
	if decodeJSON(resultJSON, &res, "run result") {
		run.Result = &res
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
