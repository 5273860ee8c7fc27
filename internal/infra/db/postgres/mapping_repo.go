package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/sbomify/assessments/internal/domain/mappings"
)

type MappingRepository struct{ db *sql.DB }

func NewMappingRepository(db *sql.DB) *MappingRepository { return &MappingRepository{db: db} }

func (r *MappingRepository) Get(ctx context.Context, releaseID, serverName string) (*mappings.ExternalProject, error) {
	const q = `
SELECT release_id, server_name, external_id, created_at
FROM external_project_mappings
WHERE release_id = $1 AND server_name = $2 LIMIT 1;`
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

// GetOrCreate relies on ON CONFLICT DO NOTHING: when a concurrent writer
// already inserted the (release, server) row, the insert is a no-op and the
// winning row is re-read.
func (r *MappingRepository) GetOrCreate(ctx context.Context, m *mappings.ExternalProject) (*mappings.ExternalProject, error) {
	const q = `
INSERT INTO external_project_mappings (release_id, server_name, external_id, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (release_id, server_name) DO NOTHING;`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, q, m.ReleaseID, m.ServerName, m.ExternalID, created); err != nil {
		return nil, err
	}
	return r.Get(ctx, m.ReleaseID, m.ServerName)
}
