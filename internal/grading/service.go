// Package grading looks exercises up, runs their verifiers, caches markup
// verdicts and records every graded attempt.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/exercise-engine/internal/cache"
	"github.com/terra-clan/exercise-engine/internal/catalog"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/storage"
)

// Common errors
var (
	ErrExerciseNotFound   = errors.New("exercise not found")
	ErrKindMismatch       = errors.New("submission kind does not match exercise")
	ErrSubmissionTooLarge = errors.New("submission too large")
)

// Service defines grading operations
type Service interface {
	Grade(ctx context.Context, slug, learnerID string, sub models.Submission) (*models.Attempt, error)
	Preview(ctx context.Context, slug string, sub models.Submission) (models.Result, error)
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	ListAttempts(ctx context.Context, filters models.AttemptFilters) ([]*models.Attempt, error)
	PruneAttempts(ctx context.Context, before time.Time) (int64, error)
	Catalog() *catalog.Catalog
	Ping(ctx context.Context) error
}

// Options tunes a Grader
type Options struct {
	// MaxSubmissionBytes bounds HTML+CSS of a markup submission; 0 disables
	MaxSubmissionBytes int

	// Version namespaces cached verdicts, so a deploy with changed
	// verifiers does not serve verdicts from the previous build
	Version string
}

// Grader implements Service. It holds no per-request state.
type Grader struct {
	catalog *catalog.Catalog
	cache   cache.Cache
	repo    storage.Repository
	opts    Options
	now     func() time.Time
}

// NewGrader creates a grader. A nil cache disables verdict caching.
func NewGrader(c *catalog.Catalog, verdicts cache.Cache, repo storage.Repository, opts Options) *Grader {
	if verdicts == nil {
		verdicts = cache.Nop{}
	}
	return &Grader{
		catalog: c,
		cache:   verdicts,
		repo:    repo,
		opts:    opts,
		now:     time.Now,
	}
}

// Catalog returns the catalog the grader serves
func (g *Grader) Catalog() *catalog.Catalog {
	return g.catalog
}

// Ping checks the attempt store
func (g *Grader) Ping(ctx context.Context) error {
	if err := g.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository ping failed: %w", err)
	}
	return nil
}

// Grade verifies sub against the exercise and records the attempt
func (g *Grader) Grade(ctx context.Context, slug, learnerID string, sub models.Submission) (*models.Attempt, error) {
	start := g.now()

	res, cached, err := g.verify(ctx, slug, sub)
	if err != nil {
		return nil, err
	}

	attempt := &models.Attempt{
		ID:          uuid.New().String(),
		Slug:        slug,
		LearnerID:   learnerID,
		Kind:        sub.Kind(),
		Result:      res,
		Cached:      cached,
		SubmittedAt: start.UTC(),
		Duration:    g.now().Sub(start),
	}

	if err := g.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	slog.Info("attempt graded",
		"id", attempt.ID,
		"slug", slug,
		"learner", learnerID,
		"passed", res.Passed,
		"errors", res.ErrorCount(),
		"cached", cached,
		"duration_ms", attempt.Duration.Milliseconds(),
	)

	return attempt, nil
}

// Preview verifies sub without recording an attempt
func (g *Grader) Preview(ctx context.Context, slug string, sub models.Submission) (models.Result, error) {
	res, _, err := g.verify(ctx, slug, sub)
	return res, err
}

func (g *Grader) verify(ctx context.Context, slug string, sub models.Submission) (models.Result, bool, error) {
	ex, ok := g.catalog.GetBySlug(slug)
	if !ok {
		return models.Result{}, false, ErrExerciseNotFound
	}
	if sub == nil || sub.Kind() != ex.Kind {
		return models.Result{}, false, fmt.Errorf("%w: %s expects %s", ErrKindMismatch, slug, ex.Kind)
	}

	// Only markup verdicts are cached: component submissions run learner code.
	markup, isMarkup := sub.(models.MarkupSubmission)
	if !isMarkup {
		res, err := ex.Verify(sub)
		return res, false, err
	}

	if max := g.opts.MaxSubmissionBytes; max > 0 && len(markup.HTML)+len(markup.CSS) > max {
		return models.Result{}, false, fmt.Errorf("%w: limit is %d bytes", ErrSubmissionTooLarge, max)
	}

	key := cache.Key(g.opts.Version, slug, markup)
	if res, ok := g.cache.Get(ctx, key); ok {
		return res, true, nil
	}

	res, err := ex.Verify(markup)
	if err != nil {
		return models.Result{}, false, err
	}
	g.cache.Set(ctx, key, res)
	return res, false, nil
}

// GetAttempt returns an attempt by ID, or nil when it does not exist
func (g *Grader) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	a, err := g.repo.GetAttempt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// ListAttempts lists recorded attempts
func (g *Grader) ListAttempts(ctx context.Context, filters models.AttemptFilters) ([]*models.Attempt, error) {
	attempts, err := g.repo.ListAttempts(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// PruneAttempts deletes attempts submitted before the given time
func (g *Grader) PruneAttempts(ctx context.Context, before time.Time) (int64, error) {
	n, err := g.repo.DeleteAttemptsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return n, nil
}
