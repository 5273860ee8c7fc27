package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/sbomify/assessments/internal/domain/mappings"
)

// MappingRepository persists release↔external-server project mappings. The
// (release_id, server_name) pair carries a UNIQUE constraint; concurrency is
// settled by the database, not by application locking.
type MappingRepository struct {
	db *sql.DB
}

func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Get(ctx context.Context, releaseID, serverName string) (*mappings.ExternalProject, error) {
	const q = `
SELECT release_id, server_name, external_id, created_at
FROM external_project_mappings
WHERE release_id = ? AND server_name = ? LIMIT 1;
`
	var m mappings.ExternalProject
	err := r.db.QueryRowContext(ctx, q, releaseID, serverName).Scan(
		&m.ReleaseID, &m.ServerName, &m.ExternalID, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, mappings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate inserts the mapping, tolerating a uniqueness violation from a
// concurrent writer by re-reading the winning row. Both racers observe the
// same mapping afterward.
func (r *MappingRepository) GetOrCreate(ctx context.Context, m *mappings.ExternalProject) (*mappings.ExternalProject, error) {
	const q = `
INSERT INTO external_project_mappings (release_id, server_name, external_id, created_at)
VALUES (?,?,?,?);
`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, m.ReleaseID, m.ServerName, m.ExternalID, created)
	if err != nil {
		if isDuplicate(err) {
			return r.Get(ctx, m.ReleaseID, m.ServerName)
		}
		return nil, err
	}
	out := *m
	out.CreatedAt = created
	return &out, nil
}
