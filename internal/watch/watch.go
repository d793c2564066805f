// Package watch rebuilds the site when the assets tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// BuildFunc runs one build.
type BuildFunc func(ctx context.Context) error

// Watcher triggers debounced builds on filesystem changes and on a periodic
// resync. At most one build runs at a time; changes seen during a build
// queue exactly one follow-up.
type Watcher struct {
	AssetsDir        string
	ThumbsDir        string
	Extensions       sets.Set[string]
	SidecarSuffix    string
	DirectorySidecar string
	Debounce         time.Duration
	Resync           time.Duration
	Build            BuildFunc

	// Listen, when set, serves Metrics on /metrics.
	Listen  string
	Metrics http.Handler

	Logger *slog.Logger

	requests chan struct{}
	mu       sync.Mutex
	timer    *time.Timer
}

// New creates a watcher for cfg.
func New(cfg *config.Config, build BuildFunc) *Watcher {
	return &Watcher{
		AssetsDir:        cfg.AssetsDir(),
		ThumbsDir:        cfg.ThumbnailsDir(),
		Extensions:       sets.New(cfg.Assets.Extensions...),
		SidecarSuffix:    cfg.Assets.SidecarSuffix,
		DirectorySidecar: cfg.Assets.DirectorySidecar,
		Debounce:         cfg.Watch.Debounce,
		Resync:           cfg.Watch.ResyncInterval,
		Listen:           cfg.Monitoring.Metrics.Listen,
		Build:            build,
		Logger:           slog.Default(),
	}
}

// WithMetrics serves h on /metrics when Listen is set.
func (w *Watcher) WithMetrics(h http.Handler) *Watcher {
	w.Metrics = h
	return w
}

// Run builds once, then watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Build == nil {
		return errors.New("watch: no build function")
	}
	w.requests = make(chan struct{}, 1)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()
	if err := w.addDirsRecursive(fw, w.AssetsDir); err != nil {
		return err
	}

	sched, err := w.startResync()
	if err != nil {
		return err
	}
	defer func() { _ = sched.Shutdown() }()

	srv := w.startMetrics()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.worker(ctx)
	}()
	w.request()

	w.Logger.Info("Watching assets", logfields.Path(w.AssetsDir),
		slog.Duration("debounce", w.Debounce), slog.Duration("resync", w.Resync))

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			<-done
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Trigger schedules a build after the debounce window. Repeated calls within
// the window coalesce.
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.request)
}

func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// worker runs builds one at a time. The buffered request channel holds at
// most one pending build.
func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			if err := w.Build(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Logger.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) startResync() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if w.Resync > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(w.Resync),
			gocron.NewTask(func() {
				w.Logger.Debug("Periodic resync")
				w.request()
			}),
			gocron.WithName("resync"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to create resync job: %w", err)
		}
	}
	s.Start()
	return s, nil
}

func (w *Watcher) startMetrics() *http.Server {
	if w.Listen == "" || w.Metrics == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.Metrics)
	srv := &http.Server{Addr: w.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.Logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	w.Logger.Info("Serving metrics", slog.String("listen", w.Listen))
	return srv
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.underThumbs(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fw, ev.Name)
			w.Trigger()
			return
		}
	}
	if ev.Op == fsnotify.Chmod || !w.Relevant(ev.Name) {
		return
	}
	w.Logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.Trigger()
}

// Relevant reports whether a change to p can affect the build output:
// images with an ingested extension and sidecar metadata. Removing a
// directory reports an extensionless path, which is also relevant.
func (w *Watcher) Relevant(p string) bool {
	if w.underThumbs(p) {
		return false
	}
	base := filepath.Base(p)
	if w.DirectorySidecar != "" && base == w.DirectorySidecar {
		return true
	}
	if ignoredName(base) {
		return false
	}
	if w.SidecarSuffix != "" && strings.HasSuffix(base, w.SidecarSuffix) {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	return ext == "" || w.Extensions.Has(ext)
}

func (w *Watcher) underThumbs(p string) bool {
	thumbs := filepath.Clean(w.ThumbsDir)
	return p == thumbs || strings.HasPrefix(p, thumbs+string(filepath.Separator))
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.underThumbs(p) || (p != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			w.Logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// ignoredName matches hidden files and editor temp files.
func ignoredName(base string) bool {
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) ||
		base == "Thumbs.db"
}
