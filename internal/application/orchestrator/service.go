package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/sbomify/assessments/internal/application/registry"
	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/hierarchy"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/domain/tasks"
	"github.com/sbomify/assessments/internal/domain/tenants"
)

// Service decides which plugins apply to an SBOM and enqueues one unit of
// work per eligible plugin. Safe to call repeatedly for the same SBOM: a
// non-stale run for (sbom, plugin, config-hash) blocks re-enqueueing.
type Service struct {
	Registry *registry.Registry
	Settings tenants.Repository
	Gate     tenants.FeatureGate
	Runs     domain.Repository
	Catalog  hierarchy.Catalog
	Queue    tasks.Queue
}

// EnqueueAssessments schedules work for every eligible plugin: globally
// enabled AND tenant-enabled AND plan-entitled AND dependency-satisfied.
// Returns the number of tasks queued.
func (s *Service) EnqueueAssessments(ctx context.Context, tenantID, sbomID string, reason domain.Reason) (int, error) {
	sbom, err := s.Catalog.SBOM(ctx, tenantID, sbomID)
	if err != nil {
		return 0, fmt.Errorf("loading sbom %s: %w", sbomID, err)
	}

	stored, err := s.Settings.Get(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("loading settings for %s: %w", tenantID, err)
	}

	siblings, err := s.Runs.LatestPerPlugin(ctx, sbomID)
	if err != nil {
		return 0, fmt.Errorf("loading existing runs: %w", err)
	}

	queued := 0
	for _, p := range s.Registry.ListEnabled() {
		if !stored.Enabled(p.Name) {
			continue
		}
		if p.Feature != "" {
			ok, err := s.Gate.HasFeature(ctx, tenantID, p.Feature)
			if err != nil {
				return queued, fmt.Errorf("checking feature %s: %w", p.Feature, err)
			}
			if !ok {
				continue
			}
		}
		if !p.Requires.SatisfiedBy(siblings) {
			continue
		}

		cfg := p.EffectiveConfig(stored.ConfigFor(p.Name))
		hash := plugins.ConfigHash(cfg)

		latest, err := s.Runs.LatestFor(ctx, sbomID, p.Name, hash)
		if err != nil {
			return queued, fmt.Errorf("checking latest run for %s: %w", p.Name, err)
		}
		// pending/running/completed blocks duplicate in-flight work; a failed
		// latest run may be retried by a new trigger. The automated
		// dependency pass is not such a trigger: a permanently failing
		// plugin would otherwise re-trigger itself forever.
		if latest != nil {
			if latest.Status != domain.StatusFailed || reason == domain.ReasonDependencyTriggered {
				continue
			}
		}

		t := tasks.Task{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			SBOMID:     sbom.ID,
			PluginName: p.Name,
			Config:     cfg,
			ConfigHash: hash,
			Reason:     reason,
		}
		if err := s.Queue.Enqueue(ctx, t); err != nil {
			return queued, fmt.Errorf("enqueueing %s: %w", p.Name, err)
		}
		queued++
	}

	log.Printf("orchestrator: tenant=%s sbom=%s reason=%s queued=%d", tenantID, sbomID, reason, queued)
	return queued, nil
}
