package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "octo/materials")
	path := writeConfig(t, "paths:\n  root: /srv/site\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/site/assets", cfg.AssetsDir())
	assert.Equal(t, "/srv/site/assets/_thumbs", cfg.ThumbnailsDir())
	assert.Equal(t, "/srv/site/items", cfg.ItemsDir())
	assert.Equal(t, "/srv/site/assets.json", cfg.ManifestPath())
	assert.Equal(t, "/srv/site/.build-cache.json", cfg.CachePath())
	assert.Equal(t, "https://octo.github.io/materials/", cfg.Site.BaseURL)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "webp"}, cfg.Assets.Extensions)
	assert.Equal(t, 480, cfg.Thumbnails.Width)
	assert.Equal(t, 80, cfg.Thumbnails.Quality)
	assert.Equal(t, BuildModeIncremental, cfg.Build.Mode)
	assert.Equal(t, 1, cfg.Build.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	require.NotNil(t, cfg.Tagging)
	assert.Equal(t, []string{"kawaii", "adorable", "lovely"}, cfg.Tagging.Keywords["cute"])
}

func TestLoadExpandsEnvAndOverrides(t *testing.T) {
	t.Setenv("ASSET_SITE", "https://cdn.example.org/gallery")
	path := writeConfig(t, `
site:
  base_url: ${ASSET_SITE}
assets:
  extensions: [".PNG", "jpg"]
build:
  mode: FULL
  workers: 4
tagging:
  keywords:
    cute: [kawaii]
monitoring:
  logging:
    level: Debug
    format: json
watch:
  debounce: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.org/gallery/", cfg.Site.BaseURL)
	assert.Equal(t, []string{"png", "jpg"}, cfg.Assets.Extensions)
	assert.Equal(t, BuildModeFull, cfg.Build.Mode)
	assert.Equal(t, 4, cfg.Build.Workers)
	assert.Equal(t, map[string][]string{"cute": {"kawaii"}}, cfg.Tagging.Keywords)
	assert.Empty(t, cfg.Tagging.Segments, "explicit tagging replaces the built-in tables")
	assert.Equal(t, LogLevelDebug, cfg.Monitoring.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Monitoring.Logging.Format)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.RootDir()))
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
thumbnails:
  quality: 150
build:
  workers: -2
paths:
  thumbnails: nested/thumbs
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "thumbnails.quality")
	assert.Contains(t, err.Error(), "build.workers")
	assert.Contains(t, err.Error(), "paths.thumbnails")
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetbuilder.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err, "existing file must not be overwritten without force")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.github.io/game-assets/", cfg.Site.BaseURL)
	assert.NotEmpty(t, cfg.Tagging.Segments)
}

func TestSnapshotTracksRecordShapingFields(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Snapshot(), b.Snapshot())

	b.Monitoring.Logging.Level = LogLevelDebug
	assert.Equal(t, a.Snapshot(), b.Snapshot(), "logging does not affect records")

	b.Thumbnails.Width = 320
	assert.NotEqual(t, a.Snapshot(), b.Snapshot())

	c := Default()
	c.Tagging.Keywords["sofa"] = []string{"furniture"}
	assert.NotEqual(t, a.Snapshot(), c.Snapshot())
}

func TestBaseURLFallback(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "")
	assert.Equal(t, "http://localhost:8080/", baseURLFromEnv())
}

func TestPublicPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = "/srv/site"
	assert.Equal(t, "assets/_thumbs/ui/a-png-480.png", cfg.PublicPath("/srv/site/assets/_thumbs/ui/a-png-480.png"))
}
