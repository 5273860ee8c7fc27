package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/sbomify/assessments/internal/application/registry"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/domain/tenants"
)

// ValidationError rejects a whole settings update; nothing is persisted when
// it is returned.
type ValidationError struct {
	InvalidPlugins []string
	NotEntitled    []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.InvalidPlugins) > 0 {
		parts = append(parts, fmt.Sprintf("unknown or disabled plugins: %s", strings.Join(e.InvalidPlugins, ", ")))
	}
	if len(e.NotEntitled) > 0 {
		parts = append(parts, fmt.Sprintf("plan does not include: %s", strings.Join(e.NotEntitled, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Service implements use-cases untuk tenant plugin settings
type Service struct {
	Registry *registry.Registry
	Repo     tenants.Repository
	Gate     tenants.FeatureGate
}

// Get returns the tenant's stored settings (empty default, never an error for
// an unknown tenant).
func (s *Service) Get(ctx context.Context, tenant string) (*tenants.Settings, error) {
	return s.Repo.Get(ctx, tenant)
}

// PluginView is one enabled catalog entry as seen by a tenant: resolved
// schema, the tenant's enablement and config, and plan access flags.
type PluginView struct {
	Plugin          plugins.RegisteredPlugin `json:"plugin"`
	Schema          []plugins.ConfigField    `json:"schema"`
	Enabled         bool                     `json:"enabled"`
	Config          map[string]any           `json:"config,omitempty"`
	HasAccess       bool                     `json:"has_access"`
	RequiresUpgrade bool                     `json:"requires_upgrade"`
}

// View lists every globally enabled plugin with its resolved config schema
// for the tenant.
func (s *Service) View(ctx context.Context, tenant string) ([]PluginView, error) {
	stored, err := s.Repo.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var out []PluginView
	for _, p := range s.Registry.ListEnabled() {
		p := p
		access := true
		if p.Feature != "" {
			access, err = s.Gate.HasFeature(ctx, tenant, p.Feature)
			if err != nil {
				return nil, fmt.Errorf("checking feature %s: %w", p.Feature, err)
			}
		}
		out = append(out, PluginView{
			Plugin:          p,
			Schema:          s.Registry.ResolveConfigSchema(ctx, &p, tenant),
			Enabled:         stored.Enabled(p.Name),
			Config:          stored.ConfigFor(p.Name),
			HasAccess:       access,
			RequiresUpgrade: !access,
		})
	}
	return out, nil
}

// Update validates all-or-nothing: every requested plugin must exist and be
// globally enabled, and the tenant's plan must grant access to each. On
// success the enabled list is fully replaced and only the supplied config
// keys are merged over the stored ones.
func (s *Service) Update(ctx context.Context, tenant string, enabled []string, configs map[string]map[string]any) (*tenants.Settings, error) {
	verr := &ValidationError{}
	for _, name := range enabled {
		p, err := s.Registry.Get(name)
		if err != nil || !p.Enabled {
			verr.InvalidPlugins = append(verr.InvalidPlugins, name)
			continue
		}
		if p.Feature != "" {
			ok, err := s.Gate.HasFeature(ctx, tenant, p.Feature)
			if err != nil {
				return nil, fmt.Errorf("checking feature %s: %w", p.Feature, err)
			}
			if !ok {
				verr.NotEntitled = append(verr.NotEntitled, name)
			}
		}
	}
	if len(verr.InvalidPlugins) > 0 || len(verr.NotEntitled) > 0 {
		return nil, verr
	}

	stored, err := s.Repo.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}
	stored.TenantID = tenant
	stored.EnabledPlugins = append([]string(nil), enabled...)
	if stored.Configs == nil {
		stored.Configs = make(map[string]map[string]any)
	}
	for plugin, cfg := range configs {
		merged := stored.Configs[plugin]
		if merged == nil {
			merged = make(map[string]any, len(cfg))
		}
		for k, v := range cfg {
			merged[k] = v
		}
		stored.Configs[plugin] = merged
	}
	if err := s.Repo.Save(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}
