package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sbomify/assessments/internal/domain/tenants"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the tenant's settings row; a tenant without one gets empty
// settings, not an error.
func (r *SettingsRepository) Get(ctx context.Context, tenant string) (*tenants.Settings, error) {
	const q = `
SELECT tenant_id, enabled_plugins, configs
FROM tenant_plugin_settings
WHERE tenant_id = ? LIMIT 1;
`
	var enabledJSON, configsJSON []byte
	s := &tenants.Settings{TenantID: tenant}
	err := r.db.QueryRowContext(ctx, q, tenant).Scan(&s.TenantID, &enabledJSON, &configsJSON)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	decodeJSON(enabledJSON, &s.EnabledPlugins, "enabled plugins")
	decodeJSON(configsJSON, &s.Configs, "plugin configs")
	return s, nil
}

// Save upserts the whole settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *tenants.Settings) error {
	const q = `
INSERT INTO tenant_plugin_settings (tenant_id, enabled_plugins, configs, updated_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
 enabled_plugins=VALUES(enabled_plugins),
 configs=VALUES(configs),
 updated_at=VALUES(updated_at);
`
	enabledJSON, err := json.Marshal(s.EnabledPlugins)
	if err != nil {
		return fmt.Errorf("encoding enabled plugins: %w", err)
	}
	configsJSON, err := json.Marshal(s.Configs)
	if err != nil {
		return fmt.Errorf("encoding configs: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, s.TenantID, enabledJSON, configsJSON, time.Now())
	return err
}
