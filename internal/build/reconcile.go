package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/render"
)

// sweepOrphans removes generated artifacts no cache entry accounts for, e.g.
// after the cache was lost. Only directories holding a page written by this
// tool are touched; the thumbnails directory is entirely derived.
func (o *Orchestrator) sweepOrphans(ctx context.Context, bs *buildState, liveSlugs, liveThumbs map[string]struct{}) int {
	removed := 0

	entries, err := os.ReadDir(o.cfg.ItemsDir())
	if err != nil && !os.IsNotExist(err) {
		observability.WarnContext(ctx, "Could not list detail pages", logfields.Error(err))
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := liveSlugs[e.Name()]; ok {
			continue
		}
		fp, err := render.ReadFingerprint(filepath.Join(o.cfg.ItemsDir(), e.Name(), render.PageFile))
		if err != nil || fp == "" {
			continue
		}
		if err := bs.pages.Remove(e.Name()); err != nil {
			observability.WarnContext(ctx, "Failed to remove orphaned page", logfields.Slug(e.Name()), logfields.Error(err))
			continue
		}
		removed++
	}

	root := o.cfg.ThumbnailsDir()
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := liveThumbs[o.cfg.PublicPath(p)]; ok {
			return nil
		}
		if err := os.Remove(p); err != nil {
			observability.WarnContext(ctx, "Failed to remove orphaned thumbnail", logfields.Path(p), logfields.Error(err))
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		observability.WarnContext(ctx, "Could not sweep thumbnails", logfields.Error(err))
	}
	return removed
}
