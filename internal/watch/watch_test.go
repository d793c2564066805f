package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

func newWatcher(t *testing.T, build BuildFunc) *Watcher {
	t.Helper()
	assets := t.TempDir()
	return &Watcher{
		AssetsDir:        assets,
		ThumbsDir:        filepath.Join(assets, "_thumbs"),
		Extensions:       sets.New("png", "jpg"),
		SidecarSuffix:    ".meta.json",
		DirectorySidecar: ".meta.json",
		Debounce:         20 * time.Millisecond,
		Build:            build,
		Logger:           discardLogger(),
	}
}

func TestRelevant(t *testing.T) {
	w := newWatcher(t, nil)
	cases := map[string]bool{
		filepath.Join(w.AssetsDir, "ui", "ok.png"):            true,
		filepath.Join(w.AssetsDir, "ui", "OK.JPG"):            true,
		filepath.Join(w.AssetsDir, "ui", "ok.meta.json"):      true,
		filepath.Join(w.AssetsDir, "ui", ".meta.json"):        true,
		filepath.Join(w.AssetsDir, "ui"):                      true,
		filepath.Join(w.AssetsDir, "ui", "notes.txt"):         false,
		filepath.Join(w.AssetsDir, "ui", ".ok.png.swp"):       false,
		filepath.Join(w.AssetsDir, "ui", "ok.png~"):           false,
		filepath.Join(w.AssetsDir, "_thumbs", "ok-png-1.png"): false,
		w.ThumbsDir: false,
	}
	for p, want := range cases {
		assert.Equal(t, want, w.Relevant(p), p)
	}
}

func TestRun_RebuildsOnChange(t *testing.T) {
	var builds atomic.Int32
	w := newWatcher(t, func(context.Context) error {
		builds.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A burst of writes coalesces into one rebuild.
	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(w.AssetsDir, "a.png"), []byte{byte(i)}, 0o644))
	}
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), builds.Load())

	// Thumbnail output never triggers a build.
	require.NoError(t, os.MkdirAll(w.ThumbsDir, 0o755))
	time.Sleep(100 * time.Millisecond)
	before := builds.Load()
	require.NoError(t, os.WriteFile(filepath.Join(w.ThumbsDir, "a-png-480.png"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, builds.Load())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWorker_QueuesOneFollowUp(t *testing.T) {
	release := make(chan struct{})
	var builds atomic.Int32
	w := newWatcher(t, func(context.Context) error {
		builds.Add(1)
		<-release
		return nil
	})
	w.requests = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.worker(ctx)

	w.request()
	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Requests during a running build collapse into one pending build.
	for range 10 {
		w.request()
	}
	release <- struct{}{}
	require.Eventually(t, func() bool { return builds.Load() == 2 }, time.Second, 5*time.Millisecond)
	release <- struct{}{}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), builds.Load())
	close(release)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
