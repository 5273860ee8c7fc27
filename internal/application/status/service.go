package status

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/hierarchy"
)

// Overall enum for an SBOM's latest-run set.
type Overall string

const (
	OverallAllPass       Overall = "all_pass"
	OverallHasFailures   Overall = "has_failures"
	OverallPending       Overall = "pending"
	OverallInProgress    Overall = "in_progress"
	OverallNoAssessments Overall = "no_assessments"
)

// PluginSummary is the reduced per-plugin payload used by badges.
type PluginSummary struct {
	Plugin   string         `json:"plugin"`
	Status   domain.Status  `json:"status"`
	Passing  bool           `json:"passing"`
	Summary  *domain.Summary `json:"summary,omitempty"`
}

// SBOMStatus is the latest-run summary for one artifact.
type SBOMStatus struct {
	Overall   Overall         `json:"overall_status"`
	Total     int             `json:"total"`
	Passing   []string        `json:"passing"`
	PerPlugin []PluginSummary `json:"per_plugin"`
}

// EmptySBOMStatus is the view served when nothing is on record for an
// artifact, including artifacts the catalog does not know.
func EmptySBOMStatus() *SBOMStatus {
	return &SBOMStatus{Overall: OverallNoAssessments, Passing: []string{}, PerPlugin: []PluginSummary{}}
}

// Rollup carries the intersection-based status one level of the hierarchy
// reports upward. It never reveals which child failed.
type Rollup struct {
	HasAssessments bool     `json:"has_assessments"`
	AllPass        bool     `json:"all_pass"`
	Passing        []string `json:"passing"`
}

// Service computes pass/fail rollups across the artifact hierarchy. Views are
// derived on read and never stored.
type Service struct {
	Runs    domain.Repository
	Catalog hierarchy.Catalog
}

// SBOMPassing returns the plugin names whose latest run for the SBOM is
// completed with zero failures and zero errors. Anything pending, running,
// failed or completed-with-failures is excluded and never surfaced.
func (s *Service) SBOMPassing(ctx context.Context, sbomID string) (map[string]struct{}, error) {
	latest, err := s.Runs.LatestPerPlugin(ctx, sbomID)
	if err != nil {
		return nil, fmt.Errorf("loading latest runs: %w", err)
	}
	out := make(map[string]struct{})
	for _, r := range latest {
		if r.Passing() {
			out[r.PluginName] = struct{}{}
		}
	}
	return out, nil
}

// SBOMStatus derives the overall status from the latest-run set only, never
// from history. An unknown SBOM reports no assessments, not an error.
func (s *Service) SBOMStatus(ctx context.Context, sbomID string) (*SBOMStatus, error) {
	latest, err := s.Runs.LatestPerPlugin(ctx, sbomID)
	if err != nil {
		return nil, fmt.Errorf("loading latest runs: %w", err)
	}

	st := EmptySBOMStatus()
	if len(latest) == 0 {
		return st, nil
	}

	st.Total = len(latest)
	var failures, running, pending int
	for _, r := range latest {
		pass := r.Passing()
		ps := PluginSummary{Plugin: r.PluginName, Status: r.Status, Passing: pass}
		if r.Result != nil {
			sum := r.Result.Summary
			ps.Summary = &sum
		}
		st.PerPlugin = append(st.PerPlugin, ps)

		switch {
		case pass:
			st.Passing = append(st.Passing, r.PluginName)
		case r.Status == domain.StatusRunning:
			running++
		case r.Status == domain.StatusPending:
			pending++
		default:
			failures++
		}
	}
	sort.Strings(st.Passing)
	sort.Slice(st.PerPlugin, func(i, j int) bool { return st.PerPlugin[i].Plugin < st.PerPlugin[j].Plugin })

	switch {
	case failures > 0:
		st.Overall = OverallHasFailures
	case running > 0:
		st.Overall = OverallInProgress
	case pending > 0:
		st.Overall = OverallPending
	default:
		st.Overall = OverallAllPass
	}
	return st, nil
}

// ComponentStatus intersects passing-sets across every SBOM of the component:
// a plugin passes for the component only when every one of its SBOMs passes
// it. A component with zero SBOMs reports no assessments, not a failure.
func (s *Service) ComponentStatus(ctx context.Context, tenant, componentID string) (*Rollup, error) {
	sboms, err := s.Catalog.SBOMsOfComponent(ctx, tenant, componentID)
	if err != nil {
		return nil, fmt.Errorf("loading component sboms: %w", err)
	}
	if len(sboms) == 0 {
		return &Rollup{Passing: []string{}}, nil
	}

	var acc map[string]struct{}
	has := false
	allPass := true
	for _, sb := range sboms {
		latest, err := s.Runs.LatestPerPlugin(ctx, sb.ID)
		if err != nil {
			return nil, fmt.Errorf("loading latest runs for %s: %w", sb.ID, err)
		}
		passing := make(map[string]struct{})
		for _, r := range latest {
			has = true
			if r.Passing() {
				passing[r.PluginName] = struct{}{}
			} else {
				allPass = false
			}
		}
		if len(latest) == 0 {
			allPass = false
		}
		acc = intersect(acc, passing)
	}
	if !has {
		return &Rollup{Passing: []string{}}, nil
	}
	return &Rollup{HasAssessments: true, AllPass: allPass, Passing: sortedKeys(acc)}, nil
}

// ProjectStatus folds ComponentStatus over the project's publicly visible
// components. Components reporting no assessments neither help nor block.
func (s *Service) ProjectStatus(ctx context.Context, tenant, projectID string) (*Rollup, error) {
	comps, err := s.Catalog.PublicComponentsOfProject(ctx, tenant, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project components: %w", err)
	}
	children := make([]*Rollup, 0, len(comps))
	for _, c := range comps {
		st, err := s.ComponentStatus(ctx, tenant, c.ID)
		if err != nil {
			return nil, err
		}
		children = append(children, st)
	}
	return foldRollups(children), nil
}

// ProductStatus performs the same fold one level up over publicly visible
// projects.
func (s *Service) ProductStatus(ctx context.Context, tenant, productID string) (*Rollup, error) {
	projects, err := s.Catalog.PublicProjectsOfProduct(ctx, tenant, productID)
	if err != nil {
		return nil, fmt.Errorf("loading product projects: %w", err)
	}
	children := make([]*Rollup, 0, len(projects))
	for _, p := range projects {
		st, err := s.ProjectStatus(ctx, tenant, p.ID)
		if err != nil {
			return nil, err
		}
		children = append(children, st)
	}
	return foldRollups(children), nil
}

// foldRollups intersects passing-sets across children that have assessments;
// children without assessments are excluded from the intersection input.
func foldRollups(children []*Rollup) *Rollup {
	var acc map[string]struct{}
	has := false
	allPass := true
	for _, c := range children {
		if !c.HasAssessments {
			continue
		}
		has = true
		if !c.AllPass {
			allPass = false
		}
		set := make(map[string]struct{}, len(c.Passing))
		for _, p := range c.Passing {
			set[p] = struct{}{}
		}
		acc = intersect(acc, set)
	}
	if !has {
		return &Rollup{Passing: []string{}}
	}
	return &Rollup{HasAssessments: true, AllPass: allPass, Passing: sortedKeys(acc)}
}

// intersect folds b into acc; a nil acc means "first input".
func intersect(acc, b map[string]struct{}) map[string]struct{} {
	if acc == nil {
		return b
	}
	out := make(map[string]struct{})
	for k := range acc {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
