package tenants

// Settings holds a tenant's plugin enablement and configuration overrides.
// One row per tenant.
type Settings struct {
	TenantID       string                    `json:"tenant_id"`
	EnabledPlugins []string                  `json:"enabled_plugins"`
	Configs        map[string]map[string]any `json:"configs,omitempty"`
}

// Enabled reports whether the tenant enabled the named plugin.
func (s *Settings) Enabled(plugin string) bool {
	for _, p := range s.EnabledPlugins {
		if p == plugin {
			return true
		}
	}
	return false
}

// ConfigFor returns the tenant's override for a plugin, possibly nil.
func (s *Settings) ConfigFor(plugin string) map[string]any {
	if s.Configs == nil {
		return nil
	}
	return s.Configs[plugin]
}
