package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sbomify/assessments/internal/application"
	"github.com/sbomify/assessments/internal/domain/ai"
	"github.com/sbomify/assessments/internal/domain/analyses"
	domain "github.com/sbomify/assessments/internal/domain/assessments"
)

// Service runs AI summarization over a completed run's findings and stores
// the result for auditing.
type Service struct {
	Client ai.Client
	Runs   domain.Repository
	Repo   analyses.Repository
	Clock  application.Clock
}

func NewService(client ai.Client, runs domain.Repository, repo analyses.Repository, clock application.Clock) *Service {
	return &Service{Client: client, Runs: runs, Repo: repo, Clock: clock}
}

// AnalyzeRun summarizes a completed run's findings and persists the analysis.
func (s *Service) AnalyzeRun(ctx context.Context, tenant string, runID domain.RunID) (*analyses.Analysis, error) {
	run, err := s.Runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	if run.Status != domain.StatusCompleted || run.Result == nil {
		return nil, fmt.Errorf("run %s has no completed result to analyze", runID)
	}

	payload, err := json.Marshal(run.Result)
	if err != nil {
		return nil, fmt.Errorf("encoding findings: %w", err)
	}
	result, err := s.Client.Summarize(ctx, string(payload))
	if err != nil {
		return nil, err
	}

	a := &analyses.Analysis{
		ID:        analyses.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		SBOMID:    run.SBOMID,
		RunID:     string(run.ID),
		Result:    result,
		CreatedAt: s.now(),
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List pages a tenant's analyses for one SBOM.
func (s *Service) List(ctx context.Context, tenant, sbomID string, page, pageSize int) ([]*analyses.Analysis, error) {
	return s.Repo.Paginate(ctx, tenant, sbomID, page, pageSize)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
