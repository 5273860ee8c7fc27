package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

func siblings(specs ...[2]string) []*domain.Run {
	out := make([]*domain.Run, 0, len(specs))
	for _, s := range specs {
		out = append(out, &domain.Run{PluginName: s[0], Category: domain.Category(s[1])})
	}
	return out
}

func TestRequirementSatisfiedBy(t *testing.T) {
	cases := []struct {
		name string
		req  *Requirement
		runs []*domain.Run
		want bool
	}{
		{
			name: "nil requirement always satisfied",
			req:  nil,
			runs: nil,
			want: true,
		},
		{
			name: "empty predicate list satisfied",
			req:  &Requirement{Mode: RequireOneOf},
			runs: nil,
			want: true,
		},
		{
			name: "one_of category present",
			req:  &Requirement{Mode: RequireOneOf, Categories: []domain.Category{domain.CategoryCompliance}},
			runs: siblings([2]string{"ntia-minimum-elements", "compliance"}),
			want: true,
		},
		{
			name: "one_of category absent",
			req:  &Requirement{Mode: RequireOneOf, Categories: []domain.Category{domain.CategoryCompliance}},
			runs: siblings([2]string{"scanner", "security"}),
			want: false,
		},
		{
			name: "one_of matches on second predicate",
			req: &Requirement{
				Mode:       RequireOneOf,
				Categories: []domain.Category{domain.CategoryQuality},
				Plugins:    []string{"license-policy"},
			},
			runs: siblings([2]string{"license-policy", "compliance"}),
			want: true,
		},
		{
			name: "all_of needs every predicate",
			req: &Requirement{
				Mode:       RequireAllOf,
				Categories: []domain.Category{domain.CategoryCompliance},
				Plugins:    []string{"license-policy"},
			},
			runs: siblings([2]string{"ntia-minimum-elements", "compliance"}),
			want: false,
		},
		{
			name: "all_of fully matched",
			req: &Requirement{
				Mode:       RequireAllOf,
				Categories: []domain.Category{domain.CategoryCompliance},
				Plugins:    []string{"license-policy"},
			},
			runs: siblings(
				[2]string{"ntia-minimum-elements", "compliance"},
				[2]string{"license-policy", "compliance"},
			),
			want: true,
		},
		{
			name: "failing sibling still satisfies",
			req:  &Requirement{Mode: RequireOneOf, Categories: []domain.Category{domain.CategoryCompliance}},
			runs: func() []*domain.Run {
				rs := siblings([2]string{"ntia-minimum-elements", "compliance"})
				rs[0].Status = domain.StatusFailed
				return rs
			}(),
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.req.SatisfiedBy(tc.runs))
		})
	}
}

func TestEffectiveConfigDoesNotMutateInputs(t *testing.T) {
	p := &RegisteredPlugin{DefaultConfig: map[string]any{"threshold": 5, "server": "primary"}}
	override := map[string]any{"server": "secondary"}

	got := p.EffectiveConfig(override)

	assert.Equal(t, map[string]any{"threshold": 5, "server": "secondary"}, got)
	assert.Equal(t, map[string]any{"threshold": 5, "server": "primary"}, p.DefaultConfig)
	assert.Equal(t, map[string]any{"server": "secondary"}, override)
}

func TestEffectiveConfigNilOverride(t *testing.T) {
	p := &RegisteredPlugin{DefaultConfig: map[string]any{"threshold": 5}}
	assert.Equal(t, map[string]any{"threshold": 5}, p.EffectiveConfig(nil))
}
