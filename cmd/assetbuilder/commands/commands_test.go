package commands

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/testutil"
)

func project(t *testing.T) *CLI {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "assetbuilder.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  root: "+root+"\nmonitoring:\n  metrics:\n    textfile: metrics/assetbuilder.prom\n"), 0o644))
	testutil.WriteImage(t, filepath.Join(root, "assets", "ui", "ok.png"), 4, 4, color.White)
	return &CLI{Config: cfgPath}
}

func TestBuildHistoryVerify(t *testing.T) {
	cli := project(t)
	root := filepath.Dir(cli.Config)

	require.NoError(t, (&BuildCmd{}).Run(&Global{}, cli))
	assert.FileExists(t, filepath.Join(root, "assets.json"))
	assert.FileExists(t, filepath.Join(root, "items", "ui-ok", "index.html"))
	assert.FileExists(t, filepath.Join(root, "metrics", "assetbuilder.prom"))
	assert.FileExists(t, filepath.Join(root, ".build-history.db"))

	require.NoError(t, (&HistoryCmd{Limit: 5}).Run(&Global{}, cli))
	require.NoError(t, (&HistoryCmd{Limit: 5, Since: time.Hour}).Run(&Global{}, cli))
	require.NoError(t, (&VerifyCmd{}).Run(&Global{}, cli))

	require.NoError(t, os.Remove(filepath.Join(root, "assets", "_thumbs", "ui", "ok-png-480.png")))
	err := (&VerifyCmd{}).Run(&Global{}, cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	cli := project(t)
	require.NoError(t, (&BuildCmd{DryRun: true}).Run(&Global{}, cli))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cli.Config), "assets.json"))
}

func TestRunInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "assetbuilder.yaml")
	require.NoError(t, RunInit(p, false))
	assert.FileExists(t, p)
	assert.Error(t, RunInit(p, false))
	assert.NoError(t, RunInit(p, true))
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(&build.Result{
		BuildID:  "0123456789abcdef",
		Status:   build.BuildStatusSuccess,
		Mode:     "incremental",
		Counts:   build.Counts{Added: 3, Regenerated: 2, Failed: 1},
		Duration: 1500 * time.Millisecond,
	})
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "incremental")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "REGENERATED")
}

func TestPrintSummary_NonTerminalWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &build.Result{Status: build.BuildStatusSuccess})
	assert.Empty(t, buf.String())
	printSummary(&buf, nil)
}

func TestRenderHistory(t *testing.T) {
	out := renderHistory([]*eventstore.BuildSummary{{
		BuildID:  "abcdef0123456789",
		Status:   eventstore.StatusSucceeded,
		Mode:     "full",
		Revision: "0123456789abcdef0123",
		Counts:   eventstore.Counts{Added: 2, Modified: 1},
	}})
	assert.Contains(t, out, "abcdef01")
	assert.Contains(t, out, "2+ 1~ 0-")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abc ")
}
