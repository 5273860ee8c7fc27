package plugins

import (
	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

// Choice is one selectable value for a schema field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ConfigField describes one field of a plugin's configuration form. A field
// may carry static choices, or name a dynamic choices source resolved per
// tenant at read time.
type ConfigField struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Type          string   `json:"type"` // text | number | boolean | choice
	Choices       []Choice `json:"choices,omitempty"`
	ChoicesSource string   `json:"choices_source,omitempty"`
}

// RequireMode enum
type RequireMode string

const (
	RequireOneOf RequireMode = "one_of"
	RequireAllOf RequireMode = "all_of"
)

// Requirement declares which sibling assessments must exist before a plugin
// becomes eligible. A predicate is matched by any sibling run (pending or
// complete) of the named category or plugin; whether that sibling passed is
// deliberately not consulted.
type Requirement struct {
	Mode       RequireMode       `json:"mode"`
	Categories []domain.Category `json:"categories,omitempty"`
	Plugins    []string          `json:"plugins,omitempty"`
}

// SatisfiedBy evaluates the requirement against existing sibling runs.
func (r *Requirement) SatisfiedBy(siblings []*domain.Run) bool {
	if r == nil {
		return true
	}
	matched := 0
	total := len(r.Categories) + len(r.Plugins)
	if total == 0 {
		return true
	}
	for _, c := range r.Categories {
		if anyCategory(siblings, c) {
			matched++
		}
	}
	for _, p := range r.Plugins {
		if anyPlugin(siblings, p) {
			matched++
		}
	}
	if r.Mode == RequireAllOf {
		return matched == total
	}
	return matched > 0
}

func anyCategory(runs []*domain.Run, c domain.Category) bool {
	for _, r := range runs {
		if r.Category == c {
			return true
		}
	}
	return false
}

func anyPlugin(runs []*domain.Run, name string) bool {
	for _, r := range runs {
		if r.PluginName == name {
			return true
		}
	}
	return false
}

// RegisteredPlugin is a catalog entry. Name is globally unique and immutable
// once runs reference it.
type RegisteredPlugin struct {
	Name          string           `json:"name"`
	DisplayName   string           `json:"display_name"`
	Category      domain.Category  `json:"category"`
	Version       string           `json:"version"`
	Enabled       bool             `json:"enabled"`
	Beta          bool             `json:"beta,omitempty"`
	DefaultConfig map[string]any   `json:"default_config,omitempty"`
	Schema        []ConfigField    `json:"schema,omitempty"`
	Requires      *Requirement     `json:"requires,omitempty"`
	// Feature names the plan-gated billing feature, empty when ungated.
	Feature string `json:"feature,omitempty"`
}

// EffectiveConfig merges a tenant override over the plugin defaults. Neither
// input map is mutated.
func (p *RegisteredPlugin) EffectiveConfig(override map[string]any) map[string]any {
	out := make(map[string]any, len(p.DefaultConfig)+len(override))
	for k, v := range p.DefaultConfig {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
