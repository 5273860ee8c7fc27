package queue

import (
	"context"
	"log"
	"time"

	"github.com/sbomify/assessments/internal/domain/tasks"
	"github.com/sbomify/assessments/internal/middleware"
)

// Store is the durable backing table the pool polls.
type Store interface {
	ClaimDue(ctx context.Context, limit int) ([]tasks.Task, error)
	Complete(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// Executor runs one task; the engine implements it.
type Executor interface {
	Execute(ctx context.Context, t tasks.Task) error
}

// Pool polls the store and fans tasks out to independent workers. Workers
// share no in-memory state; all coordination happens through the database.
type Pool struct {
	Store        Store
	Exec         Executor
	Workers      int
	PollInterval time.Duration
}

// Run blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}
	interval := p.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ch := make(chan tasks.Task)
	for i := 0; i < workers; i++ {
		go p.worker(ctx, ch)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(ch)
			return
		case <-ticker.C:
			claimed, err := p.Store.ClaimDue(ctx, workers*2)
			if err != nil {
				log.Printf("queue: claim error: %v", err)
				continue
			}
			for _, t := range claimed {
				select {
				case ch <- t:
				case <-ctx.Done():
					close(ch)
					return
				}
			}
		}
	}
}

func (p *Pool) worker(ctx context.Context, ch <-chan tasks.Task) {
	for t := range ch {
		middleware.IncrementAssessmentsRunning()
		err := p.Exec.Execute(ctx, t)
		middleware.DecrementAssessmentsRunning()
		if err != nil {
			// release for redelivery; at-least-once, the engine re-checks
			// run state so a duplicate delivery is harmless
			middleware.IncrementAssessmentsFailed()
			log.Printf("queue: task=%s execute error: %v", t.ID, err)
			if rerr := p.Store.Release(ctx, t.ID); rerr != nil {
				log.Printf("queue: task=%s release error: %v", t.ID, rerr)
			}
			continue
		}
		middleware.IncrementAssessmentsProcessed()
		if cerr := p.Store.Complete(ctx, t.ID); cerr != nil {
			log.Printf("queue: task=%s complete error: %v", t.ID, cerr)
		}
	}
}
