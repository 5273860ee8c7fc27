// Package license flags components whose declared license is missing or on
// the tenant's deny list.
package license

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/infra/plugins/cdx"
)

const (
	Name    = "license-policy"
	Version = "1.0.3"
)

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Metadata() plugins.Metadata {
	return plugins.Metadata{Name: Name, Version: Version, Category: domain.CategoryCompliance}
}

// Catalog is the registry entry for this plugin.
func Catalog() plugins.RegisteredPlugin {
	return plugins.RegisteredPlugin{
		Name:        Name,
		DisplayName: "License Policy",
		Category:    domain.CategoryCompliance,
		Version:     Version,
		Enabled:     true,
		DefaultConfig: map[string]any{
			"denied_licenses": []string{},
		},
		Schema: []plugins.ConfigField{
			{Key: "denied_licenses", Label: "Denied licenses", Type: "text"},
		},
	}
}

func (p *Plugin) Assess(_ context.Context, in plugins.Input) (*domain.Result, error) {
	doc, err := cdx.Decode(in.Content)
	if err != nil {
		return nil, err
	}

	denied := deniedSet(in.Config)
	var findings []domain.Finding
	for _, c := range doc.Components {
		findings = append(findings, checkComponent(c, denied))
	}
	if len(findings) == 0 {
		findings = append(findings, domain.Finding{
			ID:          "license-empty",
			Title:       "No components",
			Status:      domain.FindingWarning,
			Description: "Document lists no components to check.",
		})
	}
	return domain.NewResult(findings), nil
}

func checkComponent(c cdx.Component, denied map[string]bool) domain.Finding {
	f := domain.Finding{
		ID:        "license-" + componentRef(c),
		Title:     fmt.Sprintf("License of %s", c.Name),
		Component: c.Name,
	}
	if len(c.Licenses) == 0 {
		f.Status = domain.FindingWarning
		f.Description = "Component declares no license."
		f.Remediation = "Declare the component's license in the SBOM."
		return f
	}
	for _, lc := range c.Licenses {
		v := lc.Value()
		if v == "" {
			continue
		}
		if denied[strings.ToLower(v)] {
			f.Status = domain.FindingFail
			f.Description = fmt.Sprintf("License %s is on the deny list.", v)
			f.Remediation = "Replace the component or obtain a policy exception."
			return f
		}
	}
	f.Status = domain.FindingPass
	f.Description = "Declared licenses are allowed."
	return f
}

func deniedSet(cfg map[string]any) map[string]bool {
	out := make(map[string]bool)
	raw, ok := cfg["denied_licenses"]
	if !ok {
		return out
	}
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			out[strings.ToLower(s)] = true
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out[strings.ToLower(s)] = true
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out[strings.ToLower(s)] = true
			}
		}
	}
	return out
}

func componentRef(c cdx.Component) string {
	if c.BOMRef != "" {
		return c.BOMRef
	}
	if c.Purl != "" {
		return c.Purl
	}
	return c.Name
}
