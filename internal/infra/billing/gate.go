// Package billing provides the config-backed plan feature gate used in
// single-binary deployments, where no external billing service is wired.
package billing

import "context"

// StaticGate answers feature checks from a fixed tenant -> features table.
type StaticGate struct {
	features map[string]map[string]bool
}

func NewStaticGate(grants map[string][]string) *StaticGate {
	g := &StaticGate{features: make(map[string]map[string]bool, len(grants))}
	for tenant, feats := range grants {
		set := make(map[string]bool, len(feats))
		for _, f := range feats {
			set[f] = true
		}
		g.features[tenant] = set
	}
	return g
}

func (g *StaticGate) HasFeature(_ context.Context, tenant, feature string) (bool, error) {
	return g.features[tenant][feature], nil
}
