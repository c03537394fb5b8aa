package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner deletes attempts submitted before a cutoff
type Pruner interface {
	PruneAttempts(ctx context.Context, before time.Time) (int64, error)
}

// Cleaner handles periodic pruning of old attempts
type Cleaner struct {
	pruner   Pruner
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewCleaner creates a new retention worker. A zero maxAge keeps attempts forever.
func NewCleaner(pruner Pruner, maxAge, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Cleaner{
		pruner:   pruner,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the retention worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Stop cancels the worker and waits for it to exit
func (c *Cleaner) Stop() {
	c.once.Do(func() {
		if c.cancel == nil {
			close(c.done)
			return
		}
		c.cancel()
		<-c.done
	})
}

// run is the main loop for the retention worker
func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)

	if c.maxAge <= 0 {
		slog.Info("attempt retention disabled")
		return
	}

	slog.Info("retention worker started", "interval", c.interval, "max_age", c.maxAge)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup removes attempts older than maxAge
func (c *Cleaner) cleanup(ctx context.Context) {
	cutoff := c.now().Add(-c.maxAge)
	slog.Debug("running retention cycle", "cutoff", cutoff)

	n, err := c.pruner.PruneAttempts(ctx, cutoff)
	if err != nil {
		slog.Error("failed to prune attempts", "error", err, "cutoff", cutoff)
		return
	}

	if n == 0 {
		slog.Debug("no expired attempts found")
		return
	}

	slog.Info("expired attempts deleted", "count", n, "cutoff", cutoff)
}
