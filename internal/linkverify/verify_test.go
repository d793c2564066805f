package linkverify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/render"
	"git.home.luguber.info/inful/assetbuilder/internal/testutil"
)

func touch(t *testing.T, root, rel string) {
	t.Helper()
	testutil.WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), []byte("x"))
}

func site(t *testing.T) (string, *asset.Record) {
	t.Helper()
	root := t.TempDir()
	rec := &asset.Record{
		ID: "ui-ok", Slug: "ui-ok", Title: "ok", Category: "ui", Tags: []string{"ui"},
		License: "CC0-1.0", SourcePath: "ui/ok.png",
		OriginalPath:  "assets/ui/ok.png",
		ThumbnailPath: "assets/_thumbs/ui/ok-png-480.png",
	}
	w := &render.Writer{ItemsDir: filepath.Join(root, "items"), ItemsPath: "items", SiteTitle: "Test", Generator: "test"}
	_, err := w.Write(rec, nil)
	require.NoError(t, err)
	touch(t, root, rec.ThumbnailPath)
	return root, rec
}

func TestExtractLinksFromReader(t *testing.T) {
	links, err := ExtractLinksFromReader(strings.NewReader(
		`<a href="../x/">x</a><a href="#top">top</a><img src="https://cdn.test/a.png"><link rel="canonical" href="/abs">`))
	require.NoError(t, err)
	require.Len(t, links, 4)
	assert.True(t, links[0].IsInternal)
	assert.False(t, links[1].IsInternal)
	assert.False(t, links[2].IsInternal)
	assert.Equal(t, "img", links[2].Tag)
	assert.False(t, links[3].IsInternal)
}

func TestVerifyPages_ReportsMissingOriginal(t *testing.T) {
	root, _ := site(t)
	v := &Verifier{SiteRoot: root, Prefixes: []string{"items", "assets"}}

	rep, err := v.VerifyPages(context.Background(), filepath.Join(root, "items"))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pages)
	assert.False(t, rep.OK())
	require.Len(t, rep.Broken, 2)
	for _, b := range rep.Broken {
		assert.Equal(t, "items/ui-ok/index.html", b.Page)
		assert.Equal(t, "assets/ui/ok.png", b.Target)
	}

	touch(t, root, "assets/ui/ok.png")
	rep, err = v.VerifyPages(context.Background(), filepath.Join(root, "items"))
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Positive(t, rep.Checked)
}

func TestVerifyPages_MissingItemsDir(t *testing.T) {
	v := &Verifier{SiteRoot: t.TempDir()}
	rep, err := v.VerifyPages(context.Background(), filepath.Join(v.SiteRoot, "items"))
	require.NoError(t, err)
	assert.Zero(t, rep.Pages)
	assert.True(t, rep.OK())
}

func TestVerifyManifest(t *testing.T) {
	root, rec := site(t)
	v := &Verifier{SiteRoot: root, Prefixes: []string{"assets"}}
	m := manifest.New([]*asset.Record{rec}, manifest.Info{})

	rep := v.VerifyManifest(m, "assets.json")
	require.Len(t, rep.Broken, 1)
	assert.Equal(t, "assets/ui/ok.png", rep.Broken[0].Target)

	total := &Report{}
	total.Merge(rep)
	assert.Equal(t, 2, total.Links)
}
