package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
	calls   chan struct{}
}

func newFakePruner() *fakePruner {
	return &fakePruner{calls: make(chan struct{}, 16)}
}

func (p *fakePruner) PruneAttempts(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	p.cutoffs = append(p.cutoffs, before)
	p.mu.Unlock()
	select {
	case p.calls <- struct{}{}:
	default:
	}
	return 3, p.err
}

func (p *fakePruner) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func waitCall(t *testing.T, p *fakePruner) {
	t.Helper()
	select {
	case <-p.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner was not called")
	}
}

func TestCleanerRunsImmediatelyWithCutoff(t *testing.T) {
	p := newFakePruner()
	c := NewCleaner(p, 24*time.Hour, time.Hour)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Start(context.Background())
	waitCall(t, p)
	c.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
}

func TestCleanerTicks(t *testing.T) {
	p := newFakePruner()
	c := NewCleaner(p, time.Minute, 10*time.Millisecond)

	c.Start(context.Background())
	waitCall(t, p)
	waitCall(t, p)
	c.Stop()

	assert.GreaterOrEqual(t, p.count(), 2)
}

func TestCleanerSurvivesErrors(t *testing.T) {
	p := newFakePruner()
	p.err = errors.New("db down")
	c := NewCleaner(p, time.Minute, 10*time.Millisecond)

	c.Start(context.Background())
	waitCall(t, p)
	waitCall(t, p)
	c.Stop()
}

func TestCleanerDisabled(t *testing.T) {
	p := newFakePruner()
	c := NewCleaner(p, 0, time.Millisecond)

	c.Start(context.Background())
	c.Stop()

	assert.Zero(t, p.count())
}

func TestStopWithoutStart(t *testing.T) {
	c := NewCleaner(newFakePruner(), time.Minute, 0)
	c.Stop()
	c.Stop()
	assert.Equal(t, time.Hour, c.interval)
}
