package incremental

import (
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/catalog"
)

// Candidate is a current source file plus the fingerprint of the metadata
// that applies to it.
type Candidate struct {
	File                catalog.File
	MetadataFingerprint string
}

// Item is a classified current file. Previous is the cached entry whose slug
// and record carry forward. Cached is the same entry consulted only to decide
// whether derived files are still fresh; a full build sets Cached without
// Previous so slugs are allocated anew while thumbnails are reused.
type Item struct {
	Candidate
	Previous *Entry
	Cached   *Entry
}

// Changes is the classification of the current tree against the cache. All
// slices are in asset sort order.
type Changes struct {
	Added     []Item
	Modified  []Item
	Unchanged []Item
	// Deleted holds cached entries whose source file no longer exists.
	Deleted []*Entry
}

// Pending returns Added followed by Modified, in sort order.
func (c Changes) Pending() []Item {
	out := make([]Item, 0, len(c.Added)+len(c.Modified))
	out = append(out, c.Added...)
	out = append(out, c.Modified...)
	slices.SortFunc(out, func(a, b Item) int { return asset.Compare(a.File.RelPath, b.File.RelPath) })
	return out
}

// Classify compares current files against cache. A file is modified when its
// content or metadata fingerprint differs; an mtime-only change leaves it
// unchanged.
func Classify(cache *BuildCache, files []Candidate) Changes {
	var ch Changes
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.File.RelPath] = struct{}{}
		prev, ok := cache.Get(f.File.RelPath)
		switch {
		case !ok:
			ch.Added = append(ch.Added, Item{Candidate: f})
		case prev.Fingerprint != f.File.Fingerprint || prev.MetadataFingerprint != f.MetadataFingerprint:
			ch.Modified = append(ch.Modified, Item{Candidate: f, Previous: prev, Cached: prev})
		default:
			ch.Unchanged = append(ch.Unchanged, Item{Candidate: f, Previous: prev, Cached: prev})
		}
	}
	for key, e := range cache.Entries {
		if _, ok := seen[key]; !ok {
			ch.Deleted = append(ch.Deleted, e)
		}
	}
	ch.sort()
	return ch
}

// ClassifyFull treats every current file as added. Cached entries are all
// reported as Deleted so their artifacts can be reconciled against the fresh
// output. With reuseDerived, each item still carries its cached entry as
// Cached so unchanged thumbnails are not regenerated.
func ClassifyFull(cache *BuildCache, files []Candidate, reuseDerived bool) Changes {
	var ch Changes
	for _, f := range files {
		it := Item{Candidate: f}
		if reuseDerived {
			it.Cached, _ = cache.Get(f.File.RelPath)
		}
		ch.Added = append(ch.Added, it)
	}
	for _, e := range cache.Entries {
		ch.Deleted = append(ch.Deleted, e)
	}
	ch.sort()
	return ch
}

func (c *Changes) sort() {
	byItem := func(a, b Item) int { return asset.Compare(a.File.RelPath, b.File.RelPath) }
	slices.SortFunc(c.Added, byItem)
	slices.SortFunc(c.Modified, byItem)
	slices.SortFunc(c.Unchanged, byItem)
	slices.SortFunc(c.Deleted, func(a, b *Entry) int { return asset.Compare(a.Record.SourcePath, b.Record.SourcePath) })
}
