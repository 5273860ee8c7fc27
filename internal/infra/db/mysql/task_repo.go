package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sbomify/assessments/internal/domain/tasks"
)

// claimLease is how long a claimed task stays invisible before it may be
// redelivered to another worker. At-least-once: a worker dying mid-task means
// the task comes back.
const claimLease = 5 * time.Minute

// TaskRepository is the durable queue backing store. It implements
// tasks.Queue for producers and exposes claim/complete for the worker pool.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Enqueue(ctx context.Context, t tasks.Task) error {
	return r.EnqueueAfter(ctx, t, 0)
}

func (r *TaskRepository) EnqueueAfter(ctx context.Context, t tasks.Task, delay time.Duration) error {
	const q = `
INSERT INTO assessment_tasks (id, tenant_id, payload, not_before, created_at)
VALUES (?,?,?,?,?);
`
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx, q, t.ID, t.TenantID, payload, now.Add(delay), now)
	if err != nil && isDuplicate(err) {
		// a redelivered enqueue for an id already queued
		return nil
	}
	return err
}

// ClaimDue atomically claims up to limit due tasks for this worker pass.
// Tasks claimed longer than the lease ago are considered abandoned and are
// claimed again.
func (r *TaskRepository) ClaimDue(ctx context.Context, limit int) ([]tasks.Task, error) {
	if limit <= 0 {
		limit = 10
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	const sel = `
SELECT id, payload FROM assessment_tasks
WHERE not_before <= ? AND (claimed_at IS NULL OR claimed_at < ?)
ORDER BY not_before, created_at
LIMIT ?
FOR UPDATE SKIP LOCKED;
`
	rows, err := tx.QueryContext(ctx, sel, now, now.Add(-claimLease), limit)
	if err != nil {
		return nil, err
	}
	var out []tasks.Task
	var claim, drop []string
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			rows.Close()
			return nil, err
		}
		var t tasks.Task
		if !decodeJSON(payload, &t, "task") {
			// poison message; drop it instead of wedging the queue
			drop = append(drop, id)
			continue
		}
		out = append(out, t)
		claim = append(claim, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range claim {
		if _, err := tx.ExecContext(ctx, `UPDATE assessment_tasks SET claimed_at=? WHERE id=?`, now, id); err != nil {
			return nil, err
		}
	}
	for _, id := range drop {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_tasks WHERE id=?`, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Complete removes a finished task.
func (r *TaskRepository) Complete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assessment_tasks WHERE id=?`, id)
	return err
}

// Release makes a claimed task immediately due again (worker gave up).
func (r *TaskRepository) Release(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE assessment_tasks SET claimed_at=NULL WHERE id=?`, id)
	return err
}
