package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbomify/assessments/internal/application/registry"
	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/domain/tenants"
)

type fakeRepo struct {
	stored map[string]*tenants.Settings
	saves  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: make(map[string]*tenants.Settings)}
}

func (r *fakeRepo) Get(_ context.Context, tenant string) (*tenants.Settings, error) {
	if s, ok := r.stored[tenant]; ok {
		return s, nil
	}
	return &tenants.Settings{TenantID: tenant}, nil
}

func (r *fakeRepo) Save(_ context.Context, s *tenants.Settings) error {
	r.saves++
	r.stored[s.TenantID] = s
	return nil
}

type fakeGate struct {
	grants map[string]map[string]bool
}

func (g *fakeGate) HasFeature(_ context.Context, tenant, feature string) (bool, error) {
	return g.grants[tenant][feature], nil
}

type stubPlugin struct{}

func (stubPlugin) Metadata() plugins.Metadata { return plugins.Metadata{} }
func (stubPlugin) Assess(context.Context, plugins.Input) (*domain.Result, error) {
	return domain.NewResult(nil), nil
}

func newService(t *testing.T, gate tenants.FeatureGate) (*Service, *fakeRepo) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(plugins.RegisteredPlugin{
		Name:     "ntia-minimum-elements",
		Category: domain.CategoryCompliance,
		Version:  "1.2.0",
		Enabled:  true,
	}, stubPlugin{}))
	require.NoError(t, reg.Register(plugins.RegisteredPlugin{
		Name:     "dependency-track",
		Category: domain.CategorySecurity,
		Version:  "2.1.0",
		Enabled:  true,
		Feature:  "vulnerability-scanning",
	}, stubPlugin{}))
	require.NoError(t, reg.Register(plugins.RegisteredPlugin{
		Name:     "retired-check",
		Category: domain.CategoryQuality,
		Version:  "0.1.0",
		Enabled:  false,
	}, stubPlugin{}))

	repo := newFakeRepo()
	return &Service{Registry: reg, Repo: repo, Gate: gate}, repo
}

func allGranted() *fakeGate {
	return &fakeGate{grants: map[string]map[string]bool{
		"acme": {"vulnerability-scanning": true},
	}}
}

func TestUpdateStoresEnabledAndConfig(t *testing.T) {
	svc, repo := newService(t, allGranted())

	got, err := svc.Update(context.Background(), "acme",
		[]string{"ntia-minimum-elements", "dependency-track"},
		map[string]map[string]any{"dependency-track": {"server": "primary"}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"ntia-minimum-elements", "dependency-track"}, got.EnabledPlugins)
	assert.Equal(t, map[string]any{"server": "primary"}, got.ConfigFor("dependency-track"))
	assert.Equal(t, 1, repo.saves)
}

func TestUpdateRejectsUnknownPluginEntirely(t *testing.T) {
	svc, repo := newService(t, allGranted())

	_, err := svc.Update(context.Background(), "acme",
		[]string{"ntia-minimum-elements", "no-such-plugin"}, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"no-such-plugin"}, verr.InvalidPlugins)
	assert.Equal(t, 0, repo.saves, "all-or-nothing: nothing persists on rejection")
}

func TestUpdateRejectsGloballyDisabledPlugin(t *testing.T) {
	svc, repo := newService(t, allGranted())

	_, err := svc.Update(context.Background(), "acme", []string{"retired-check"}, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"retired-check"}, verr.InvalidPlugins)
	assert.Equal(t, 0, repo.saves)
}

func TestUpdateRejectsUnentitledPlugin(t *testing.T) {
	svc, repo := newService(t, &fakeGate{grants: map[string]map[string]bool{}})

	_, err := svc.Update(context.Background(), "acme", []string{"dependency-track"}, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"dependency-track"}, verr.NotEntitled)
	assert.Equal(t, 0, repo.saves)
}

func TestUpdateMergesOnlySuppliedConfigKeys(t *testing.T) {
	svc, repo := newService(t, allGranted())
	repo.stored["acme"] = &tenants.Settings{
		TenantID:       "acme",
		EnabledPlugins: []string{"dependency-track"},
		Configs: map[string]map[string]any{
			"dependency-track": {"server": "primary", "threshold": 5},
		},
	}

	got, err := svc.Update(context.Background(), "acme",
		[]string{"dependency-track"},
		map[string]map[string]any{"dependency-track": {"server": "secondary"}},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"server": "secondary", "threshold": 5},
		got.ConfigFor("dependency-track"), "untouched keys survive")
}

func TestUpdateReplacesEnabledListCompletely(t *testing.T) {
	svc, repo := newService(t, allGranted())
	repo.stored["acme"] = &tenants.Settings{
		TenantID:       "acme",
		EnabledPlugins: []string{"ntia-minimum-elements", "dependency-track"},
	}

	got, err := svc.Update(context.Background(), "acme", []string{"ntia-minimum-elements"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ntia-minimum-elements"}, got.EnabledPlugins)
}

func TestViewFlagsPlanAccess(t *testing.T) {
	svc, _ := newService(t, &fakeGate{grants: map[string]map[string]bool{}})

	views, err := svc.View(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, views, 2, "globally disabled plugins are not listed")

	byName := make(map[string]PluginView, len(views))
	for _, v := range views {
		byName[v.Plugin.Name] = v
	}

	assert.True(t, byName["ntia-minimum-elements"].HasAccess)
	assert.False(t, byName["ntia-minimum-elements"].RequiresUpgrade)
	assert.False(t, byName["dependency-track"].HasAccess)
	assert.True(t, byName["dependency-track"].RequiresUpgrade)
}
