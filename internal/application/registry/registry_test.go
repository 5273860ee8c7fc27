package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/plugins"
)

type noopPlugin struct{ name string }

func (p *noopPlugin) Metadata() plugins.Metadata {
	return plugins.Metadata{Name: p.name, Version: "1.0.0", Category: domain.CategoryCompliance}
}

func (p *noopPlugin) Assess(context.Context, plugins.Input) (*domain.Result, error) {
	return domain.NewResult(nil), nil
}

func register(t *testing.T, r *Registry, name string, enabled bool) {
	t.Helper()
	err := r.Register(plugins.RegisteredPlugin{
		Name:     name,
		Category: domain.CategoryCompliance,
		Version:  "1.0.0",
		Enabled:  enabled,
	}, &noopPlugin{name: name})
	require.NoError(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := New()
	register(t, r, "license-policy", true)

	err := r.Register(plugins.RegisteredPlugin{Name: "license-policy"}, &noopPlugin{name: "license-policy"})
	assert.Error(t, err)

	// entry pertama tidak boleh tertimpa
	got, err := r.Get("license-policy")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestListEnabledSortedAndFiltered(t *testing.T) {
	r := New()
	register(t, r, "zeta", true)
	register(t, r, "alpha", true)
	register(t, r, "hidden", false)

	list := r.ListEnabled()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestGetReturnsCopy(t *testing.T) {
	r := New()
	register(t, r, "alpha", true)

	a, err := r.Get("alpha")
	require.NoError(t, err)
	a.Enabled = false

	b, err := r.Get("alpha")
	require.NoError(t, err)
	assert.True(t, b.Enabled)
}

func TestResolveConfigSchema(t *testing.T) {
	r := New()
	r.RegisterResolver("deptrack_servers", func(_ context.Context, tenant string) []plugins.Choice {
		return []plugins.Choice{{Value: "primary", Label: "Primary (" + tenant + ")"}}
	})

	p := &plugins.RegisteredPlugin{
		Name: "dependency-track",
		Schema: []plugins.ConfigField{
			{Key: "server", Type: "choice", ChoicesSource: "deptrack_servers"},
			{Key: "mode", Type: "choice", Choices: []plugins.Choice{{Value: "strict"}}},
			{Key: "missing", Type: "choice", ChoicesSource: "no_such_resolver"},
		},
	}

	got := r.ResolveConfigSchema(context.Background(), p, "acme")
	require.Len(t, got, 3)

	assert.Equal(t, []plugins.Choice{{Value: "primary", Label: "Primary (acme)"}}, got[0].Choices)
	assert.Equal(t, []plugins.Choice{{Value: "strict"}}, got[1].Choices)
	assert.Equal(t, []plugins.Choice{}, got[2].Choices, "unknown resolver degrades to empty, not nil")

	// stored schema stays untouched
	assert.Nil(t, p.Schema[0].Choices)
	assert.Nil(t, p.Schema[2].Choices)
}
