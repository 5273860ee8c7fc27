package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbomify/assessments/internal/domain/tasks"
)

type collector struct {
	mu   sync.Mutex
	seen []tasks.Task
	done chan struct{}
	want int
}

func newCollector(want int) *collector {
	return &collector{done: make(chan struct{}), want: want}
}

func (c *collector) handle(_ context.Context, t tasks.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, t)
	if len(c.seen) == c.want {
		close(c.done)
	}
}

func (c *collector) wait(t *testing.T) []tasks.Task {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the expected tasks")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tasks.Task(nil), c.seen...)
}

func TestMemoryDeliversImmediately(t *testing.T) {
	c := newCollector(1)
	q := NewMemory(c.handle)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), tasks.Task{ID: "t-1"}))

	got := c.wait(t)
	assert.Equal(t, "t-1", got[0].ID)
}

func TestMemoryHonorsDelay(t *testing.T) {
	c := newCollector(1)
	q := NewMemory(c.handle)
	defer q.Close()

	start := time.Now()
	require.NoError(t, q.EnqueueAfter(context.Background(), tasks.Task{ID: "t-1"}, 50*time.Millisecond))

	c.wait(t)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryCloseDropsPending(t *testing.T) {
	c := newCollector(1)
	q := NewMemory(c.handle)

	require.NoError(t, q.EnqueueAfter(context.Background(), tasks.Task{ID: "t-1"}, time.Hour))
	q.Close()

	require.NoError(t, q.Enqueue(context.Background(), tasks.Task{ID: "t-2"}))

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.seen, "closed queue must not deliver")
}
