package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/catalog"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/slug"
)

func items(paths ...string) []incremental.Item {
	out := make([]incremental.Item, 0, len(paths))
	for _, p := range paths {
		out = append(out, incremental.Item{Candidate: incremental.Candidate{File: catalog.File{RelPath: p}}})
	}
	return out
}

func TestSplit(t *testing.T) {
	sizes := func(chunks [][]incremental.Item) []int {
		var out []int
		for _, c := range chunks {
			out = append(out, len(c))
		}
		return out
	}
	in := items("a", "b", "c", "d", "e", "f", "g")
	assert.Equal(t, []int{3, 2, 2}, sizes(split(in, 3)))
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1}, sizes(split(in, 50)))
	assert.Nil(t, split(nil, 4))

	// Chunks are contiguous and preserve order.
	var flat []string
	for _, c := range split(in, 3) {
		for _, it := range c {
			flat = append(flat, it.File.RelPath)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, flat)
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, "sequential", StrategyFor(0).Name())
	assert.Equal(t, "sequential", StrategyFor(1).Name())
	assert.Equal(t, "sharded(4)", StrategyFor(4).Name())
}

func TestSharded_WorkerPanicFailsWithoutMerge(t *testing.T) {
	// A processor without a resolver panics on the first item.
	p := &processor{}
	alloc := slug.New()
	out, err := Sharded{Workers: 2}.Process(context.Background(), p, items("a.png", "b.png"), alloc)
	require.Error(t, err)
	assert.Nil(t, out)

	var we *WorkerError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, 0, we.Worker)
	assert.True(t, alloc.Claim("a", "a"), "nothing was merged into the shared allocator")
}

func TestSequential_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sequential{}.Process(ctx, &processor{}, items("a.png"), slug.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlugBase(t *testing.T) {
	assert.Equal(t, "landscape-cuteroom1", slugBase("landscape/cuteroom1.jpg", "landscape"))
	assert.Equal(t, "hero", slugBase("hero.png", "misc"))
	assert.Equal(t, "ui-big-button", slugBase("ui/buttons/Big Button.png", "ui"))
	assert.Equal(t, slug.Fallback, slugBase("!!!.png", "misc"))
}
