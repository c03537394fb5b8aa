package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/exercise-engine/internal/models"
)

func TestKeyIsStableAndDistinct(t *testing.T) {
	a := Key("v1", "card", models.MarkupSubmission{HTML: "<div>", CSS: ""})
	assert.Equal(t, a, Key("v1", "card", models.MarkupSubmission{HTML: "<div>", CSS: ""}))

	// field boundaries are part of the key
	assert.NotEqual(t, a, Key("v1", "card", models.MarkupSubmission{HTML: "<di", CSS: "v>"}))
	assert.NotEqual(t, a, Key("v1", "navbar", models.MarkupSubmission{HTML: "<div>"}))
	assert.NotEqual(t,
		Key("v1", "card", models.MarkupSubmission{HTML: "x\x00", CSS: "y"}),
		Key("v1", "card", models.MarkupSubmission{HTML: "x", CSS: "\x00y"}),
	)
}

func TestKeyVersionNamespaces(t *testing.T) {
	sub := models.MarkupSubmission{HTML: "<div>"}
	assert.NotEqual(t, Key("v1", "card", sub), Key("v2", "card", sub))
	assert.Equal(t, Key("", "card", sub), Key("dev", "card", sub))
	assert.Contains(t, Key("v2", "card", sub), "verdict:v2:card:")
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	res := models.NewResult(models.StrategyFullChecklist, []models.Message{models.Hint("ok")})
	c.Set(ctx, "a", res)
	c.Set(ctx, "b", res)
	c.Set(ctx, "c", res)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")

	got, ok := c.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, res, got)

	got.Messages[0] = models.Error("mutated")
	again, _ := c.Get(ctx, "c")
	assert.Equal(t, models.Hint("ok"), again.Messages[0])
}

func TestNewLRUInvalidSize(t *testing.T) {
	_, err := NewLRU(0)
	assert.Error(t, err)
}

type mapCache map[string]models.Result

func (m mapCache) Get(_ context.Context, key string) (models.Result, bool) {
	r, ok := m[key]
	return r, ok
}

func (m mapCache) Set(_ context.Context, key string, res models.Result) {
	m[key] = res
}

func TestTieredPromotesSharedHits(t *testing.T) {
	ctx := context.Background()
	local, shared := mapCache{}, mapCache{}
	c := NewTiered(local, shared)

	res := models.NewResult(models.StrategyFullChecklist, nil)
	shared["k"] = res

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, res, got)
	assert.Contains(t, local, "k")

	c.Set(ctx, "n", res)
	assert.Contains(t, local, "n")
	assert.Contains(t, shared, "n")
}

func TestTieredNilTiers(t *testing.T) {
	ctx := context.Background()
	c := NewTiered(nil, nil)
	c.Set(ctx, "k", models.Result{})
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	var nop Nop
	nop.Set(ctx, "k", models.Result{})
	_, ok = nop.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, "127.0.0.1:1", "", 0, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
