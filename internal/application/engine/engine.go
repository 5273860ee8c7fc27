package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sbomify/assessments/internal/application"
	"github.com/sbomify/assessments/internal/application/registry"
	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/hierarchy"
	"github.com/sbomify/assessments/internal/domain/plugins"
	"github.com/sbomify/assessments/internal/domain/tasks"
)

// Backoff is the fixed delay ladder between retry-later attempts. Its length
// bounds the retry ceiling.
var Backoff = []time.Duration{2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute}

// ErrTimedOut is the terminal error written when a plugin exhausts the ladder.
var ErrTimedOut = errors.New("timed out waiting for external system")

// Service wraps every plugin invocation: it owns the run row's state machine
// and converts the plugin call into a tagged outcome.
type Service struct {
	Registry *registry.Registry
	Runs     domain.Repository
	Catalog  hierarchy.Catalog
	Content  domain.ContentStore
	Queue    tasks.Queue
	Clock    application.Clock
	// Orchestrate, when set, is re-run after a run reaches a terminal
	// status so dependency-gated plugins get their turn once a prerequisite
	// run is on record.
	Orchestrate Orchestration
}

// Orchestration re-evaluates plugin eligibility for an SBOM.
type Orchestration interface {
	EnqueueAssessments(ctx context.Context, tenantID, sbomID string, reason domain.Reason) (int, error)
}

// outcomeKind tags the result of one plugin call.
type outcomeKind int

const (
	outcomeDone outcomeKind = iota
	outcomeRetry
	outcomeFailed
)

type outcome struct {
	kind        outcomeKind
	result      *domain.Result
	retryReason string
	err         error
}

// Execute processes one task. It is safe under queue redelivery: run state is
// re-checked before any expensive work.
func (s *Service) Execute(ctx context.Context, t tasks.Task) error {
	cat, err := s.Registry.Get(t.PluginName)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	impl, err := s.Registry.Impl(t.PluginName)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}

	latest, err := s.Runs.LatestFor(ctx, t.SBOMID, t.PluginName, t.ConfigHash)
	if err != nil {
		return fmt.Errorf("task %s: checking run state: %w", t.ID, err)
	}
	if latest != nil {
		switch {
		case latest.Status == domain.StatusCompleted:
			// a redelivered message for work already finished
			log.Printf("engine: task=%s already completed, skipping", t.ID)
			return nil
		case latest.Status == domain.StatusFailed:
			if t.Attempt > 0 {
				// a stray message from the ladder that already failed
				log.Printf("engine: task=%s ladder already failed, skipping", t.ID)
				return nil
			}
			// a fresh trigger after a failure. The failed row stays
			// immutable; the re-run gets its own row.
			n, cerr := s.Runs.CountAttempts(ctx, t.SBOMID, t.PluginName, t.ConfigHash)
			if cerr != nil {
				return fmt.Errorf("task %s: counting prior runs: %w", t.ID, cerr)
			}
			log.Printf("engine: task=%s plugin=%s re-run #%d after failure", t.ID, t.PluginName, n+1)
			latest = nil
		case latest.Attempt > t.Attempt:
			// a later attempt is already in flight
			log.Printf("engine: task=%s superseded by attempt=%d, skipping", t.ID, latest.Attempt)
			return nil
		}
	}

	sbom, err := s.Catalog.SBOM(ctx, t.TenantID, t.SBOMID)
	if err != nil {
		return fmt.Errorf("task %s: loading sbom: %w", t.ID, err)
	}

	run := latest
	if run == nil {
		now := s.Clock.Now()
		run = &domain.Run{
			ID:            domain.RunID(uuid.New().String()),
			TenantID:      t.TenantID,
			SBOMID:        t.SBOMID,
			PluginName:    cat.Name,
			PluginVersion: cat.Version,
			Category:      cat.Category,
			ConfigHash:    t.ConfigHash,
			Reason:        t.Reason,
			Status:        domain.StatusPending,
			Attempt:       t.Attempt,
			StartedAt:     now,
			TriggeredBy:   t.TriggeredBy,
			InputDigest:   sbom.ContentDigest,
			CreatedAt:     now,
		}
		if err := s.Runs.Create(ctx, run); err != nil {
			return fmt.Errorf("task %s: creating run: %w", t.ID, err)
		}
	}

	if err := s.Runs.Transition(ctx, run.ID, domain.StatusRunning, domain.TransitionPatch{Attempt: t.Attempt}); err != nil {
		return fmt.Errorf("task %s: marking running: %w", t.ID, err)
	}

	content, err := s.Content.Fetch(ctx, sbom.ContentKey)
	if err != nil {
		ferr := fmt.Errorf("fetching sbom content: %w", err)
		return s.fail(ctx, run, ferr)
	}
	if run.InputDigest == "" {
		sum := sha256.Sum256(content)
		run.InputDigest = hex.EncodeToString(sum[:])
	}

	deps, err := s.Runs.LatestPerPlugin(ctx, t.SBOMID)
	if err != nil {
		return fmt.Errorf("task %s: loading dependency context: %w", t.ID, err)
	}

	out := s.invoke(ctx, impl, plugins.Input{
		RunID:        run.ID,
		TenantID:     t.TenantID,
		SBOMID:       t.SBOMID,
		ReleaseID:    sbom.ReleaseID,
		Attempt:      t.Attempt,
		Content:      content,
		Config:       t.Config,
		Dependencies: deps,
	})

	switch out.kind {
	case outcomeDone:
		return s.complete(ctx, t, run, out.result)

	case outcomeRetry:
		if t.Attempt >= len(Backoff) {
			// ceiling exceeded: graceful degradation, not a crash
			return s.fail(ctx, run, ErrTimedOut)
		}
		delay := Backoff[t.Attempt]
		next := t
		next.Attempt = t.Attempt + 1
		if err := s.Queue.EnqueueAfter(ctx, next, delay); err != nil {
			return fmt.Errorf("task %s: scheduling retry: %w", t.ID, err)
		}
		// the run row stays pending rather than being duplicated
		if err := s.Runs.Transition(ctx, run.ID, domain.StatusPending, domain.TransitionPatch{}); err != nil {
			return fmt.Errorf("task %s: parking run: %w", t.ID, err)
		}
		log.Printf("engine: task=%s plugin=%s retry-later attempt=%d delay=%s reason=%q",
			t.ID, t.PluginName, next.Attempt, delay, out.retryReason)
		return nil

	default:
		return s.fail(ctx, run, out.err)
	}
}

// invoke runs one plugin call and tags the outcome. A panicking plugin must
// never take the worker down with it; it becomes a failed outcome.
func (s *Service) invoke(ctx context.Context, p plugins.Plugin, in plugins.Input) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{kind: outcomeFailed, err: fmt.Errorf("plugin panic: %v", r)}
		}
	}()

	result, err := p.Assess(ctx, in)
	if err != nil {
		var retry *domain.RetryLaterError
		if errors.As(err, &retry) {
			return outcome{kind: outcomeRetry, retryReason: retry.Reason}
		}
		return outcome{kind: outcomeFailed, err: err}
	}
	return outcome{kind: outcomeDone, result: result}
}

func (s *Service) complete(ctx context.Context, t tasks.Task, run *domain.Run, result *domain.Result) error {
	now := s.Clock.Now()

	reportURL := ""
	if raw, err := json.Marshal(result); err == nil {
		key := fmt.Sprintf("%s/%s/%s.json", t.TenantID, t.PluginName, run.ID)
		url, serr := s.Content.StoreReport(ctx, key, raw, "application/json")
		if serr != nil {
			// archival is best effort; the run itself carries the payload
			log.Printf("engine: task=%s report archive failed: %v", t.ID, serr)
		} else {
			reportURL = url
		}
	}

	patch := domain.TransitionPatch{Result: result, ReportURL: reportURL, CompletedAt: &now}
	if err := s.Runs.Transition(ctx, run.ID, domain.StatusCompleted, patch); err != nil {
		return fmt.Errorf("task %s: completing run: %w", t.ID, err)
	}
	log.Printf("engine: task=%s plugin=%s completed findings=%d fail=%d",
		t.ID, t.PluginName, result.Summary.Total, result.Summary.Fail)
	s.reorchestrate(ctx, run)
	return nil
}

func (s *Service) fail(ctx context.Context, run *domain.Run, cause error) error {
	now := s.Clock.Now()
	patch := domain.TransitionPatch{Error: cause.Error(), CompletedAt: &now}
	if err := s.Runs.Transition(ctx, run.ID, domain.StatusFailed, patch); err != nil {
		return fmt.Errorf("failing run %s: %w", run.ID, err)
	}
	log.Printf("engine: run=%s plugin=%s failed: %v", run.ID, run.PluginName, cause)
	s.reorchestrate(ctx, run)
	return nil
}

// reorchestrate gives dependency-gated plugins a pass now that a sibling run
// for this SBOM exists.
func (s *Service) reorchestrate(ctx context.Context, run *domain.Run) {
	if s.Orchestrate == nil {
		return
	}
	if _, err := s.Orchestrate.EnqueueAssessments(ctx, run.TenantID, run.SBOMID, domain.ReasonDependencyTriggered); err != nil {
		log.Printf("engine: run=%s follow-up orchestration error: %v", run.ID, err)
	}
}
