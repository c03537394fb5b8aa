// Package catalog holds the read-only set of exercises, keyed by slug.
package catalog

import (
	"fmt"
	"sort"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Catalog is built once at startup and never mutated afterwards, so it is
// safe to share between goroutines without locking.
type Catalog struct {
	bySlug  map[string]*models.Exercise
	ordered []*models.Exercise
}

// New validates the definitions and builds a catalog sorted by display order
func New(exercises ...*models.Exercise) (*Catalog, error) {
	c := &Catalog{
		bySlug:  make(map[string]*models.Exercise, len(exercises)),
		ordered: make([]*models.Exercise, 0, len(exercises)),
	}

	for _, ex := range exercises {
		if err := validate(ex); err != nil {
			return nil, err
		}
		if _, dup := c.bySlug[ex.Slug]; dup {
			return nil, fmt.Errorf("duplicate exercise slug: %s", ex.Slug)
		}
		c.bySlug[ex.Slug] = ex
		c.ordered = append(c.ordered, ex)
	}

	// order is not unique; slug keeps the listing deterministic
	sort.SliceStable(c.ordered, func(i, j int) bool {
		a, b := c.ordered[i], c.ordered[j]
		if a.Metadata.Order != b.Metadata.Order {
			return a.Metadata.Order < b.Metadata.Order
		}
		return a.Slug < b.Slug
	})

	return c, nil
}

func validate(ex *models.Exercise) error {
	if ex == nil {
		return fmt.Errorf("nil exercise")
	}
	if ex.Slug == "" {
		return fmt.Errorf("exercise %q: slug is required", ex.ID)
	}
	if !ex.Kind.Valid() {
		return fmt.Errorf("exercise %s: unknown kind %q", ex.Slug, ex.Kind)
	}
	if ex.Verifier == nil {
		return fmt.Errorf("exercise %s: verifier is required", ex.Slug)
	}
	if ex.Verifier.Kind() != ex.Kind {
		return fmt.Errorf("exercise %s: %s verifier bound to %s exercise", ex.Slug, ex.Verifier.Kind(), ex.Kind)
	}
	return nil
}

// GetBySlug returns the exercise for slug
func (c *Catalog) GetBySlug(slug string) (*models.Exercise, bool) {
	ex, ok := c.bySlug[slug]
	return ex, ok
}

// List returns all exercises sorted by display order
func (c *Catalog) List() []*models.Exercise {
	out := make([]*models.Exercise, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ListByKind returns the exercises of one kind, sorted by display order
func (c *Catalog) ListByKind(kind models.Kind) []*models.Exercise {
	var out []*models.Exercise
	for _, ex := range c.ordered {
		if ex.Kind == kind {
			out = append(out, ex)
		}
	}
	return out
}

// Len returns the number of exercises
func (c *Catalog) Len() int {
	return len(c.ordered)
}
