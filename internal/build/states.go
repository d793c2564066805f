package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/catalog"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/metadata"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/render"
	"git.home.luguber.info/inful/assetbuilder/internal/sitemap"
	"git.home.luguber.info/inful/assetbuilder/internal/slug"
	"git.home.luguber.info/inful/assetbuilder/internal/thumbnail"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
	"git.home.luguber.info/inful/assetbuilder/internal/version"
)

// stateInit takes the cache lock, loads the cache and wires the components
// for this run.
func (o *Orchestrator) stateInit(ctx context.Context, bs *buildState) error {
	cfg := o.cfg
	lock, err := incremental.AcquireLock(cfg.CachePath())
	if err != nil {
		return err
	}
	bs.lock = lock

	// The thumbnails directory is created on first write; creating it here
	// would also create a missing assets root.
	if !bs.req.DryRun {
		if err := os.MkdirAll(cfg.ItemsDir(), 0o755); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create items directory").
				WithContext("path", cfg.ItemsDir()).Fatal().Build()
		}
	}

	cache, err := incremental.Load(cfg.CachePath(), o.logger)
	if err != nil {
		return err
	}
	bs.cache = cache

	if cache.Len() > 0 && cache.ConfigSnapshot != cfg.Snapshot() {
		bs.configChanged = true
		if bs.req.Mode == config.BuildModeIncremental {
			observability.InfoContext(ctx, "Configuration changed since last build, running full build")
			bs.req.Mode = config.BuildModeFull
			bs.result.Mode = config.BuildModeFull
		}
	}

	bs.result.Revision = o.revision()
	o.journal.Started(ctx, bs.result.BuildID, eventstore.BuildStarted{
		Mode:     string(bs.req.Mode),
		Workers:  bs.req.Workers,
		Revision: bs.result.Revision,
		DryRun:   bs.req.DryRun,
	})

	bs.sidecar = metadata.NewSidecarContributor(cfg.Assets.SidecarSuffix, cfg.Assets.DirectorySidecar, o.logger)
	bs.thumbs = &thumbnail.Engine{
		SiteRoot:  cfg.RootDir(),
		AssetsDir: cfg.AssetsDir(),
		ThumbsDir: cfg.ThumbnailsDir(),
		Width:     cfg.Thumbnails.Width,
		Quality:   cfg.Thumbnails.Quality,
		Logger:    o.logger,
	}
	bs.pages = &render.Writer{
		ItemsDir:     cfg.ItemsDir(),
		ItemsPath:    cfg.PublicPath(cfg.ItemsDir()),
		SiteTitle:    cfg.Site.Title,
		Generator:    version.Generator(),
		RelatedLimit: cfg.Build.RelatedLimit,
		Logger:       o.logger,
	}
	bs.strategy = StrategyFor(bs.req.Workers)
	return nil
}

// stateScanning enumerates the assets tree and fingerprints the metadata
// applying to each file.
func (o *Orchestrator) stateScanning(ctx context.Context, bs *buildState) error {
	cat := catalog.New(o.cfg.AssetsDir(), o.cfg.Assets.Extensions, o.cfg.Paths.Thumbnails)
	cat.Logger = o.logger

	files, skipped, err := cat.Collect(ctx)
	if err != nil {
		if catalog.IsTraversal(err) {
			return ferrors.WrapError(err, ferrors.CategoryTraversal, "scan assets").
				WithContext("root", o.cfg.AssetsDir()).Fatal().UserAction().Build()
		}
		return err
	}
	for _, e := range skipped {
		observability.WarnContext(ctx, "Skipping unreadable entry", logfields.Error(e))
		bs.result.Failures = append(bs.result.Failures, ItemFailure{SourcePath: entryPath(e), Err: e})
		bs.result.Counts.Failed++
		o.recorder.IncItemResult(metrics.ItemFailed)
	}

	bs.candidates = make([]incremental.Candidate, 0, len(files))
	for _, f := range files {
		fp := bs.sidecar.Fingerprint(metadata.Source{AbsPath: f.AbsPath, RelPath: f.RelPath})
		bs.metaFP[f.RelPath] = fp
		bs.candidates = append(bs.candidates, incremental.Candidate{File: f, MetadataFingerprint: fp})
	}
	o.recorder.SetCatalogSize(len(files))
	observability.InfoContext(ctx, "Scanned assets", logfields.Count(len(files)))
	return nil
}

func entryPath(err error) string {
	var entry *catalog.EntryError
	if errors.As(err, &entry) {
		return entry.RelPath
	}
	return ""
}

// stateClassifying compares the scan against the cache. Unchanged items whose
// thumbnail has gone missing are queued with the modified ones but counted
// as regenerated.
func (o *Orchestrator) stateClassifying(ctx context.Context, bs *buildState) error {
	if bs.req.Mode == config.BuildModeFull {
		bs.changes = incremental.ClassifyFull(bs.cache, bs.candidates, !bs.configChanged)
	} else {
		bs.changes = incremental.Classify(bs.cache, bs.candidates)
	}

	ch := &bs.changes
	kept := ch.Unchanged[:0]
	regenerated := 0
	for _, it := range ch.Unchanged {
		if o.thumbnailMissing(it.Previous.Record) {
			observability.DebugContext(ctx, "Thumbnail missing, reprocessing", logfields.Asset(it.File.RelPath))
			ch.Modified = append(ch.Modified, it)
			regenerated++
			continue
		}
		kept = append(kept, it)
	}
	ch.Unchanged = kept
	slices.SortFunc(ch.Modified, func(a, b incremental.Item) int {
		return asset.Compare(a.File.RelPath, b.File.RelPath)
	})

	current := make(map[string]struct{}, len(bs.candidates))
	for _, c := range bs.candidates {
		current[c.File.RelPath] = struct{}{}
	}
	deleted := 0
	for _, e := range ch.Deleted {
		if _, ok := current[e.Record.SourcePath]; !ok {
			deleted++
		}
	}

	c := &bs.result.Counts
	c.Added, c.Modified, c.Unchanged, c.Deleted = len(ch.Added), len(ch.Modified)-regenerated, len(ch.Unchanged), deleted
	c.Regenerated = regenerated
	o.recorder.AddChanges("added", c.Added)
	o.recorder.AddChanges("modified", c.Modified)
	o.recorder.AddChanges("unchanged", c.Unchanged)
	o.recorder.AddChanges("deleted", c.Deleted)
	o.recorder.AddChanges("regenerated", c.Regenerated)

	observability.InfoContext(ctx, "Classified assets",
		logfields.Mode(string(bs.req.Mode)),
		logfields.Count(len(ch.Added)+len(ch.Modified)))

	if bs.req.DryRun {
		bs.stop = true
	}
	return nil
}

func (o *Orchestrator) thumbnailMissing(rec *asset.Record) bool {
	if rec.ThumbnailPath == "" {
		return true
	}
	st, err := os.Stat(filepath.Join(o.cfg.RootDir(), filepath.FromSlash(rec.ThumbnailPath)))
	return err != nil || st.Size() == 0
}

// stateProcessing runs the strategy over added and modified items. Failed
// modified items fall back to their previous record; failed added items are
// left out.
func (o *Orchestrator) stateProcessing(ctx context.Context, bs *buildState) error {
	alloc := slug.New()
	if bs.req.Mode != config.BuildModeFull {
		for _, e := range bs.cache.Entries {
			alloc.Seed(e.Record.Slug, entryBase(e))
		}
	}

	p := &processor{
		resolver: metadata.NewResolver(o.logger,
			bs.sidecar,
			metadata.NewPatternContributor(o.cfg.Tagging),
			metadata.StructuralContributor{DefaultLicense: o.cfg.Assets.DefaultLicense},
		),
		thumbs:     bs.thumbs,
		publicPath: o.cfg.PublicPath,
		logger:     o.logger,
	}

	pending := bs.changes.Pending()
	observability.InfoContext(ctx, "Processing assets",
		logfields.Count(len(pending)), slog.String("strategy", bs.strategy.Name()))

	outcomes, err := bs.strategy.Process(ctx, p, pending, alloc)
	if err != nil {
		return err
	}
	bs.outcomes = outcomes

	records := make([]*asset.Record, 0, len(bs.changes.Unchanged)+len(outcomes))
	for _, it := range bs.changes.Unchanged {
		records = append(records, it.Previous.Record.Clone())
		bs.bases[it.File.RelPath] = entryBase(it.Previous)
	}

	c := &bs.result.Counts
	for _, out := range outcomes {
		if out.record != nil {
			records = append(records, out.record)
			bs.bases[out.record.SourcePath] = out.base
			c.Processed++
			o.recorder.IncItemResult(metrics.ItemProcessed)
			o.recorder.IncThumbnail(out.generated)
			if out.generated {
				c.ThumbnailsGenerated++
			}
			continue
		}

		rel := out.item.File.RelPath
		bs.result.Failures = append(bs.result.Failures, ItemFailure{SourcePath: rel, Skipped: out.skipped(), Err: out.err})
		if out.skipped() {
			c.Skipped++
			o.recorder.IncItemResult(metrics.ItemSkipped)
			observability.WarnContext(ctx, "Skipping unsupported asset", logfields.Asset(rel), logfields.Error(out.err))
		} else {
			c.Failed++
			o.recorder.IncItemResult(metrics.ItemFailed)
			observability.WarnContext(ctx, "Failed to process asset", logfields.Asset(rel), logfields.Error(out.err))
		}

		if prev := out.item.Previous; prev != nil && prev.Record != nil {
			bs.retained = append(bs.retained, prev)
			records = append(records, prev.Record.Clone())
		}
	}

	slices.SortFunc(records, func(a, b *asset.Record) int { return asset.Compare(a.SourcePath, b.SourcePath) })
	bs.records = records
	return nil
}

// stateReconciling removes detail pages and thumbnails that belonged to
// deleted or superseded records and are not referenced by the new set.
func (o *Orchestrator) stateReconciling(ctx context.Context, bs *buildState) error {
	liveSlugs := make(map[string]struct{}, len(bs.records))
	liveThumbs := make(map[string]struct{}, len(bs.records))
	for _, r := range bs.records {
		liveSlugs[r.Slug] = struct{}{}
		liveThumbs[r.ThumbnailPath] = struct{}{}
	}

	var stale []*asset.Record
	for _, e := range bs.changes.Deleted {
		stale = append(stale, e.Record)
	}
	for _, it := range bs.changes.Modified {
		if it.Previous != nil {
			stale = append(stale, it.Previous.Record)
		}
	}

	removed := 0
	for _, r := range stale {
		if _, ok := liveSlugs[r.Slug]; !ok {
			if err := bs.pages.Remove(r.Slug); err != nil {
				observability.WarnContext(ctx, "Failed to remove stale page", logfields.Slug(r.Slug), logfields.Error(err))
			} else {
				removed++
			}
		}
		if _, ok := liveThumbs[r.ThumbnailPath]; !ok {
			if err := bs.thumbs.Remove(r.ThumbnailPath); err != nil {
				observability.WarnContext(ctx, "Failed to remove stale thumbnail", logfields.Path(r.ThumbnailPath), logfields.Error(err))
			}
		}
	}

	if bs.req.Mode == config.BuildModeFull {
		removed += o.sweepOrphans(ctx, bs, liveSlugs, liveThumbs)
	}
	if removed > 0 {
		observability.InfoContext(ctx, "Removed stale artifacts", logfields.Count(removed))
	}
	return nil
}

// stateWriting renders detail pages, the manifest and the sitemap.
func (o *Orchestrator) stateWriting(ctx context.Context, bs *buildState) error {
	cfg := o.cfg

	published, err := o.writePages(ctx, bs)
	if err != nil {
		return err
	}

	m := manifest.New(published, manifest.Info{
		UpdatedAt: o.now(),
		BuildID:   bs.result.BuildID,
		Revision:  bs.result.Revision,
		Generator: version.Generator(),
	})
	if err := m.Write(cfg.ManifestPath()); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write manifest").
			WithContext("path", cfg.ManifestPath()).Fatal().Build()
	}

	routes, err := sitemap.Write(cfg.SitemapPath(), published, sitemap.Options{
		BaseURL:   cfg.Site.BaseURL,
		ItemsPath: cfg.PublicPath(cfg.ItemsDir()),
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write sitemap").
			WithContext("path", cfg.SitemapPath()).Fatal().Build()
	}
	bs.result.Counts.Routes = routes

	if _, err := atomicfile.WriteIfChanged(filepath.Join(cfg.RootDir(), ".nojekyll"), nil, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write .nojekyll").Fatal().Build()
	}

	observability.InfoContext(ctx, "Wrote site artifacts",
		logfields.Count(len(published)),
		slog.Int("pages_written", bs.result.Counts.PagesWritten),
		slog.Int("routes", routes))
	return nil
}

// writePages writes detail pages and returns the records that have one. A
// record whose page fails is left out of the published set but stays in
// the cache, so the next build retries it. Pages are rewritten without the
// failed records until none fail, so related links never point at a
// missing page.
func (o *Orchestrator) writePages(ctx context.Context, bs *buildState) ([]*asset.Record, error) {
	published := bs.records
	for {
		st, err := bs.pages.WriteAll(ctx, published)
		bs.result.Counts.PagesWritten += st.Written
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryRender, "write detail pages").Fatal().Build()
		}
		if len(st.Failed) == 0 {
			return published, nil
		}

		failed := make(map[*asset.Record]struct{}, len(st.Failed))
		for _, pe := range st.Failed {
			failed[pe.Record] = struct{}{}
			bs.result.Failures = append(bs.result.Failures, ItemFailure{SourcePath: pe.Record.SourcePath, Err: pe})
			bs.result.Counts.Failed++
			o.recorder.IncItemResult(metrics.ItemFailed)
		}
		kept := make([]*asset.Record, 0, len(published)-len(failed))
		for _, r := range published {
			if _, ok := failed[r]; !ok {
				kept = append(kept, r)
			}
		}
		published = kept
	}
}

// stateCommitting persists the new cache. Nothing after this point can
// invalidate it.
func (o *Orchestrator) stateCommitting(ctx context.Context, bs *buildState) error {
	if o.beforeCommit != nil {
		if err := o.beforeCommit(); err != nil {
			return err
		}
	}

	next := incremental.NewBuildCache()
	next.BuildID = bs.result.BuildID
	next.LastBuildTimestamp = o.now().UTC()
	next.Revision = bs.result.Revision
	next.ConfigSnapshot = o.cfg.Snapshot()

	for _, e := range bs.retained {
		next.Put(e.Record, e.MetadataFingerprint, entryBase(e))
	}
	for _, r := range bs.records {
		if _, ok := next.Get(r.SourcePath); ok {
			continue
		}
		next.Put(r, bs.metaFP[r.SourcePath], bs.bases[r.SourcePath])
	}

	if err := next.Commit(o.cfg.CachePath()); err != nil {
		return err
	}
	observability.DebugContext(ctx, "Committed build cache", logfields.Count(next.Len()))
	return nil
}
