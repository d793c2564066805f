package build

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metadata"
	"git.home.luguber.info/inful/assetbuilder/internal/slug"
	"git.home.luguber.info/inful/assetbuilder/internal/thumbnail"
)

// processor turns one pending item into an AssetRecord. It holds no
// per-build mutable state, so one instance serves every shard.
type processor struct {
	resolver   *metadata.Resolver
	thumbs     *thumbnail.Engine
	publicPath func(abs string) string
	logger     *slog.Logger
}

// outcome is the result of processing one item.
type outcome struct {
	item incremental.Item
	// base is the normalized slug candidate; re-allocated from on merge
	// collisions.
	base string
	// kept is set when the previous slug was carried forward.
	kept      bool
	record    *asset.Record
	generated bool
	err       error
}

func (o outcome) skipped() bool {
	var unsupported *thumbnail.UnsupportedFormatError
	return errors.As(o.err, &unsupported)
}

// slugBase is "<category>-<name>" for assets in a subdirectory and "<name>"
// at the assets root.
func slugBase(sourcePath, category string) string {
	dirs, _ := asset.Segments(sourcePath)
	name := asset.BaseName(sourcePath)
	base := name
	if len(dirs) > 0 && category != "" {
		base = category + "-" + name
	}
	if n := slug.Normalize(base); n != "" {
		return n
	}
	return slug.Fallback
}

// entryBase returns the slug candidate a cached entry was allocated from,
// deriving it for caches that predate the stored base.
func entryBase(e *incremental.Entry) string {
	if e.SlugBase != "" {
		return e.SlugBase
	}
	return slugBase(e.Record.SourcePath, e.Record.Category)
}

// process resolves metadata, ensures the thumbnail and assigns a slug from
// alloc. Context errors are returned as fatal; everything else is reported on
// the outcome.
func (p *processor) process(ctx context.Context, it incremental.Item, alloc *slug.Allocator) (outcome, error) {
	f := it.File
	o := outcome{item: it}

	meta, err := p.resolver.Resolve(ctx, metadata.Source{AbsPath: f.AbsPath, RelPath: f.RelPath})
	if err != nil {
		o.err = err
		return o, nil
	}
	o.base = slugBase(f.RelPath, meta.Category)

	req := thumbnail.Request{
		AbsPath:     f.AbsPath,
		RelPath:     f.RelPath,
		Fingerprint: f.Fingerprint,
		ModTime:     f.ModTime,
	}
	if c := it.Cached; c != nil && c.Record != nil {
		req.PreviousFingerprint = c.Record.ThumbnailFingerprint
	}
	var chosen string
	if prev := it.Previous; prev != nil && prev.Record != nil && entryBase(prev) == o.base {
		chosen, o.kept = prev.Record.Slug, true
	}

	thumb, err := p.thumbs.Ensure(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o, ctxErr
		}
		o.err = err
		return o, nil
	}
	o.generated = thumb.Generated

	// Allocate only once the item is known to succeed so failures never
	// consume a slug.
	if !o.kept {
		chosen = alloc.Allocate(o.base)
	}

	rec := &asset.Record{
		ID:                   chosen,
		Slug:                 chosen,
		Title:                meta.Title,
		Description:          meta.Description,
		Category:             meta.Category,
		Tags:                 meta.Tags,
		License:              meta.License,
		Author:               meta.Author,
		Keywords:             meta.Keywords,
		Bytes:                f.Size,
		Fingerprint:          f.Fingerprint,
		ModifiedAt:           f.ModTime.UTC(),
		SourcePath:           f.RelPath,
		OriginalPath:         p.publicPath(f.AbsPath),
		ThumbnailPath:        thumb.Path,
		ThumbnailFingerprint: f.Fingerprint,
	}
	rec.SetDimensions(thumb.Source.Width, thumb.Source.Height)
	o.record = rec

	p.logger.DebugContext(ctx, "Processed asset",
		logfields.Asset(f.RelPath), logfields.Slug(chosen))
	return o, nil
}
