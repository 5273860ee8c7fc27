package hierarchy

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a catalog lookup matches nothing.
var ErrNotFound = errors.New("catalog entity not found")

// Catalog is the read-only view of the artifact hierarchy. The catalog itself
// (storage, lifecycle) is owned by an external collaborator; the engine only
// navigates it.
type Catalog interface {
	SBOM(ctx context.Context, tenant, id string) (*SBOM, error)
	Component(ctx context.Context, tenant, id string) (*Component, error)
	Project(ctx context.Context, tenant, id string) (*Project, error)
	Product(ctx context.Context, tenant, id string) (*Product, error)

	SBOMsOfComponent(ctx context.Context, tenant, componentID string) ([]*SBOM, error)
	// PublicComponentsOfProject returns only publicly visible components.
	PublicComponentsOfProject(ctx context.Context, tenant, projectID string) ([]*Component, error)
	// PublicProjectsOfProduct returns only publicly visible projects.
	PublicProjectsOfProduct(ctx context.Context, tenant, productID string) ([]*Project, error)
}
