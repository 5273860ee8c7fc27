package tenants

import (
	"context"
)

// Repository defines persistence for tenant plugin settings
type Repository interface {
	// Get returns the tenant's settings; a tenant with no stored row gets
	// empty settings, not an error.
	Get(ctx context.Context, tenant string) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}

// FeatureGate is the billing-plan capability check. The core only ever asks
// a boolean question; plan management itself is an external collaborator.
type FeatureGate interface {
	HasFeature(ctx context.Context, tenant, feature string) (bool, error)
}
