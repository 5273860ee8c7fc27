package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sbomify/assessments/internal/domain/hierarchy"
)

// CatalogRepository membaca hirarki artifact (product > project > component >
// sbom) dari tabel milik katalog. Read-only: lifecycle tabel ini diurus
// sistem lain.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const sbomColumns = `id, tenant_id, component_id, release_id, name, format, content_key, content_digest`

func (r *CatalogRepository) SBOM(ctx context.Context, tenant, id string) (*hierarchy.SBOM, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sbomColumns+` FROM sboms WHERE tenant_id = ? AND id = ?`, tenant, id)
	return scanSBOM(row)
}

func (r *CatalogRepository) Component(ctx context.Context, tenant, id string) (*hierarchy.Component, error) {
	var c hierarchy.Component
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, public FROM components WHERE tenant_id = ? AND id = ?`,
		tenant, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Public)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hierarchy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CatalogRepository) Project(ctx context.Context, tenant, id string) (*hierarchy.Project, error) {
	var p hierarchy.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, public FROM projects WHERE tenant_id = ? AND id = ?`,
		tenant, id).Scan(&p.ID, &p.TenantID, &p.Name, &p.Public)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hierarchy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) Product(ctx context.Context, tenant, id string) (*hierarchy.Product, error) {
	var p hierarchy.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name FROM products WHERE tenant_id = ? AND id = ?`,
		tenant, id).Scan(&p.ID, &p.TenantID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hierarchy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) SBOMsOfComponent(ctx context.Context, tenant, componentID string) ([]*hierarchy.SBOM, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sbomColumns+` FROM sboms WHERE tenant_id = ? AND component_id = ? ORDER BY id`,
		tenant, componentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*hierarchy.SBOM
	for rows.Next() {
		s, err := scanSBOM(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) PublicComponentsOfProject(ctx context.Context, tenant, projectID string) ([]*hierarchy.Component, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, public FROM components
		 WHERE tenant_id = ? AND project_id = ? AND public = 1 ORDER BY id`,
		tenant, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*hierarchy.Component
	for rows.Next() {
		var c hierarchy.Component
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Public); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) PublicProjectsOfProduct(ctx context.Context, tenant, productID string) ([]*hierarchy.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, public FROM projects
		 WHERE tenant_id = ? AND product_id = ? AND public = 1 ORDER BY id`,
		tenant, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*hierarchy.Project
	for rows.Next() {
		var p hierarchy.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Public); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func scanSBOM(row rowScanner) (*hierarchy.SBOM, error) {
	var (
		s                       hierarchy.SBOM
		release, format, digest sql.NullString
	)
	err := row.Scan(&s.ID, &s.TenantID, &s.ComponentID, &release, &s.Name, &format, &s.ContentKey, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hierarchy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ReleaseID = release.String
	s.Format = format.String
	s.ContentDigest = digest.String
	return &s, nil
}
