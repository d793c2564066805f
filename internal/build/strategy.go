package build

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/slug"
)

// Strategy executes the processing state over the pending items. alloc is
// seeded with every slug the build must not hand out again; on return it
// holds every slug assigned. Outcomes are returned in item order.
type Strategy interface {
	Name() string
	Process(ctx context.Context, p *processor, items []incremental.Item, alloc *slug.Allocator) ([]outcome, error)
}

// StrategyFor returns Sequential for workers <= 1 and Sharded otherwise.
func StrategyFor(workers int) Strategy {
	if workers <= 1 {
		return Sequential{}
	}
	return Sharded{Workers: workers}
}

// Sequential processes items one at a time on the calling goroutine.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Process(ctx context.Context, p *processor, items []incremental.Item, alloc *slug.Allocator) ([]outcome, error) {
	out := make([]outcome, 0, len(items))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := p.process(ctx, it, alloc)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Sharded splits items into contiguous chunks processed by independent
// goroutines, each with its own clone of the allocator. Slugs are then
// revalidated against the shared allocator in worker order, so the result
// does not depend on scheduling. A worker that fails as a whole fails the
// processing state and nothing is merged.
type Sharded struct {
	Workers int
}

func (s Sharded) Name() string { return fmt.Sprintf("sharded(%d)", s.Workers) }

type shardResult struct {
	worker   int
	outcomes []outcome
	err      error
}

func (s Sharded) Process(ctx context.Context, p *processor, items []incremental.Item, alloc *slug.Allocator) ([]outcome, error) {
	chunks := split(items, s.Workers)
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make(chan shardResult, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(worker int, chunk []incremental.Item, local *slug.Allocator) {
			defer wg.Done()
			res := shardResult{worker: worker}
			defer func() {
				if r := recover(); r != nil {
					res.err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
					res.outcomes = nil
				}
				results <- res
			}()
			wctx := observability.WithWorker(ctx, worker)
			observability.DebugContext(wctx, "Shard started", logfields.Count(len(chunk)))
			res.outcomes, res.err = Sequential{}.Process(wctx, p, chunk, local)
		}(i, chunk, alloc.Clone())
	}
	wg.Wait()
	close(results)

	collected := make([]shardResult, 0, len(chunks))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].worker < collected[j].worker })

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range collected {
		if r.err != nil {
			return nil, &WorkerError{Worker: r.worker, Err: r.err}
		}
	}

	var merged []outcome
	for _, r := range collected {
		for _, o := range r.outcomes {
			if o.record != nil && !o.kept && !alloc.Claim(o.record.Slug, o.base) {
				s := alloc.Allocate(o.base)
				o.record.Slug, o.record.ID = s, s
			}
			merged = append(merged, o)
		}
	}
	return merged, nil
}

// split divides items into at most n contiguous chunks of near-equal size.
func split(items []incremental.Item, n int) [][]incremental.Item {
	if len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}
	chunks := make([][]incremental.Item, 0, n)
	size, rem := len(items)/n, len(items)%n
	start := 0
	for i := range n {
		end := start + size
		if i < rem {
			end++
		}
		chunks = append(chunks, items[start:end])
		start = end
	}
	return chunks
}
