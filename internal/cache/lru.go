package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// LRU is a bounded in-process cache
type LRU struct {
	entries *lru.Cache[string, models.Result]
}

// NewLRU creates an LRU holding at most size verdicts
func NewLRU(size int) (*LRU, error) {
	entries, err := lru.New[string, models.Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{entries: entries}, nil
}

func (c *LRU) Get(_ context.Context, key string) (models.Result, bool) {
	res, ok := c.entries.Get(key)
	if !ok {
		return models.Result{}, false
	}
	return cloneResult(res), true
}

func (c *LRU) Set(_ context.Context, key string, res models.Result) {
	c.entries.Add(key, cloneResult(res))
}

// Len returns the number of cached verdicts
func (c *LRU) Len() int {
	return c.entries.Len()
}

// cloneResult copies the message slice so callers cannot mutate cached entries
func cloneResult(res models.Result) models.Result {
	out := res
	out.Messages = append([]models.Message(nil), res.Messages...)
	return out
}
