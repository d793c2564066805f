package render

import (
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// DefaultRelatedLimit is the number of related assets shown on a page.
const DefaultRelatedLimit = 6

// Score rates how related other is to current: 10 for the same category
// plus 3 for every shared tag.
func Score(current, other *asset.Record) int {
	score := 0
	if current.Category == other.Category {
		score += 10
	}
	return score + 3*sets.New(current.Tags...).Intersect(sets.New(other.Tags...))
}

type scored struct {
	rec   *asset.Record
	score int
}

// Related returns up to limit records with a positive score, highest first.
// Equal scores are ordered by source path.
func Related(current *asset.Record, all []*asset.Record, limit int) []*asset.Record {
	if limit <= 0 {
		return nil
	}
	var candidates []scored
	for _, other := range all {
		if other.SourcePath == current.SourcePath {
			continue
		}
		if s := Score(current, other); s > 0 {
			candidates = append(candidates, scored{rec: other, score: s})
		}
	}
	slices.SortFunc(candidates, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return asset.Compare(a.rec.SourcePath, b.rec.SourcePath)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*asset.Record, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	return out
}
