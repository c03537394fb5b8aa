package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/verify"
)

// checklistSpec is implemented by verifiers that expose their checklist
type checklistSpec interface {
	Spec() verify.MarkupSpec
}

// SelfCheckFailure is a markup exercise whose own reference solution
// does not pass its verifier
type SelfCheckFailure struct {
	Slug   string
	Errors []models.Message
}

// SelfCheck grades every markup-style reference solution concurrently and
// returns the exercises that do not pass cleanly. Component solutions are
// source text and cannot be run here.
func SelfCheck(ctx context.Context, c *Catalog) ([]SelfCheckFailure, error) {
	var (
		mu       sync.Mutex
		failures []SelfCheckFailure
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, ex := range c.ListByKind(models.KindMarkupStyle) {
		ex := ex
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := ex.Verify(models.MarkupSubmission{HTML: ex.Solution.HTML, CSS: ex.Solution.CSS})
			if err != nil {
				return fmt.Errorf("failed to verify %s: %w", ex.Slug, err)
			}
			if passedCleanly(res, successMessage(ex)) {
				return nil
			}

			mu.Lock()
			failures = append(failures, SelfCheckFailure{Slug: ex.Slug, Errors: res.Errors()})
			mu.Unlock()
			slog.Warn("reference solution does not pass", "slug", ex.Slug, "errors", res.ErrorCount())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Slug < failures[j].Slug })
	return failures, nil
}

// successMessage is the final hint the exercise's verifier emits on success
func successMessage(ex *models.Exercise) string {
	if v, ok := ex.Verifier.(checklistSpec); ok {
		return v.Spec().SuccessMsg
	}
	return verify.SuccessText
}

// passedCleanly requires zero errors and exactly one success hint, last
func passedCleanly(res models.Result, success string) bool {
	if !res.Passed || len(res.Messages) == 0 {
		return false
	}
	want := models.Hint(success)
	if res.Messages[len(res.Messages)-1] != want {
		return false
	}
	successes := 0
	for _, m := range res.Messages {
		if m == want {
			successes++
		}
	}
	return successes == 1
}
