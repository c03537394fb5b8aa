// Package cache stores markup verdicts. Markup verifiers are pure, so a
// verdict is a function of slug, HTML and CSS and can be reused.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Cache stores results by key
type Cache interface {
	Get(ctx context.Context, key string) (models.Result, bool)
	Set(ctx context.Context, key string, res models.Result)
}

// Key derives the cache key for a markup submission. Version namespaces
// verdicts by the verifier build that produced them.
func Key(version, slug string, sub models.MarkupSubmission) string {
	h := sha256.New()
	for _, part := range []string{slug, sub.HTML, sub.CSS} {
		binary.Write(h, binary.BigEndian, uint64(len(part)))
		h.Write([]byte(part))
	}
	if version == "" {
		version = "dev"
	}
	return "verdict:" + version + ":" + slug + ":" + hex.EncodeToString(h.Sum(nil))
}

// Tiered reads through local then shared, and writes to both.
// Either tier may be nil.
type Tiered struct {
	local  Cache
	shared Cache
}

// NewTiered combines a process-local and a shared cache
func NewTiered(local, shared Cache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

func (t *Tiered) Get(ctx context.Context, key string) (models.Result, bool) {
	if t.local != nil {
		if res, ok := t.local.Get(ctx, key); ok {
			return res, true
		}
	}
	if t.shared != nil {
		if res, ok := t.shared.Get(ctx, key); ok {
			if t.local != nil {
				t.local.Set(ctx, key, res)
			}
			slog.Debug("verdict served from shared cache", "key", key)
			return res, true
		}
	}
	return models.Result{}, false
}

func (t *Tiered) Set(ctx context.Context, key string, res models.Result) {
	if t.local != nil {
		t.local.Set(ctx, key, res)
	}
	if t.shared != nil {
		t.shared.Set(ctx, key, res)
	}
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) (models.Result, bool) { return models.Result{}, false }
func (Nop) Set(context.Context, string, models.Result)        {}
