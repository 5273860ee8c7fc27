package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sbomify/assessments/internal/domain/tasks"
)

// Handler consumes one task.
type Handler func(ctx context.Context, t tasks.Task)

// Memory is an in-process queue for tests and single-node dev mode. Delayed
// tasks are delivered by timers; nothing survives a restart.
type Memory struct {
	mu      sync.Mutex
	handler Handler
	timers  []*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

func NewMemory(h Handler) *Memory {
	return &Memory{handler: h}
}

func (m *Memory) Enqueue(ctx context.Context, t tasks.Task) error {
	return m.EnqueueAfter(ctx, t, 0)
}

func (m *Memory) EnqueueAfter(_ context.Context, t tasks.Task, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer m.wg.Done()
		m.handler(context.Background(), t)
	})
	m.timers = append(m.timers, timer)
	return nil
}

// Close stops pending timers and waits for in-flight handlers.
func (m *Memory) Close() {
	m.mu.Lock()
	m.closed = true
	for _, t := range m.timers {
		if t.Stop() {
			m.wg.Done()
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}
