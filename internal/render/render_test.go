package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
)

func rec(src, slug, category string, tags ...string) *asset.Record {
	return &asset.Record{
		ID: slug, Slug: slug, SourcePath: src, Title: asset.BaseName(src), Category: category, Tags: tags,
		License: "CC0-1.0", OriginalPath: "assets/" + src, ThumbnailPath: "assets/_thumbs/" + src,
		Description: asset.BaseName(src) + " - " + category,
	}
}

func TestScore(t *testing.T) {
	a := rec("a.png", "a", "ui", "x", "y", "z")
	assert.Equal(t, 19, Score(a, rec("b.png", "b", "ui", "x", "y")))
	assert.Equal(t, 3, Score(a, rec("c.png", "c", "other", "z")))
	assert.Equal(t, 0, Score(a, rec("d.png", "d", "other")))
}

func TestRelated_OrderAndLimit(t *testing.T) {
	cur := rec("ui/cur.png", "cur", "ui", "ui", "button")
	all := []*asset.Record{
		cur,
		rec("z/far.png", "far", "z"),
		rec("ui/b.png", "b", "ui", "ui"),
		rec("ui/a.png", "a", "ui", "ui"),
		rec("x/btn.png", "btn", "x", "button"),
		rec("ui/best.png", "best", "ui", "ui", "button"),
	}
	got := Related(cur, all, 6)
	slugs := make([]string, len(got))
	for i, r := range got {
		slugs[i] = r.Slug
	}
	assert.Equal(t, []string{"best", "a", "b", "btn"}, slugs)

	assert.Len(t, Related(cur, all, 2), 2)
	assert.Empty(t, Related(cur, all, 0))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "2 KB", HumanSize(2048))
	assert.Equal(t, "1.50 MB", HumanSize(3*1024*512))
}

func newWriter(t *testing.T) *Writer {
	t.Helper()
	return &Writer{
		ItemsDir:     filepath.Join(t.TempDir(), "items"),
		ItemsPath:    "items",
		SiteTitle:    "Free Game Materials",
		Generator:    "assetbuilder/test",
		RelatedLimit: 6,
	}
}

func load(t *testing.T, file string) *goquery.Document {
	t.Helper()
	f, err := os.Open(file)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestWrite_RendersPage(t *testing.T) {
	w := newWriter(t)
	r := rec("landscape/cuteroom1.jpg", "landscape-cuteroom1", "landscape", "landscape", "interior")
	r.SetDimensions(640, 480)
	r.Bytes = 2048
	r.Author = "yama"
	other := rec("landscape/sky.png", "landscape-sky", "landscape", "landscape")

	written, err := w.Write(r, []*asset.Record{other})
	require.NoError(t, err)
	assert.True(t, written)

	doc := load(t, w.PagePath(r.Slug))
	assert.Equal(t, "cuteroom1", doc.Find("h1").Text())
	assert.Equal(t, "cuteroom1 - Free Game Materials", doc.Find("title").Text())

	src, _ := doc.Find("figure img").Attr("src")
	assert.Equal(t, "../../assets/_thumbs/landscape/cuteroom1.jpg", src)
	dl, _ := doc.Find("a.download").Attr("href")
	assert.Equal(t, "../../assets/landscape/cuteroom1.jpg", dl)

	var tags []string
	doc.Find("ul.tags li").Each(func(_ int, s *goquery.Selection) { tags = append(tags, s.Text()) })
	assert.Equal(t, []string{"landscape", "interior"}, tags)

	details := doc.Find("table.details").Text()
	assert.Contains(t, details, "Landscape")
	assert.Contains(t, details, "640 × 480")
	assert.Contains(t, details, "2 KB")
	assert.Contains(t, details, "JPG")
	assert.Contains(t, details, "CC0-1.0")
	assert.Contains(t, details, "yama")

	href, _ := doc.Find("section.related a").Attr("href")
	assert.Equal(t, "../../items/landscape-sky/", href)

	fp, ok := doc.Find(`meta[name="fingerprint"]`).Attr("content")
	assert.True(t, ok)
	assert.NotEmpty(t, fp)
}

func TestWrite_SkipsUnchangedPage(t *testing.T) {
	w := newWriter(t)
	r := rec("a.png", "a", "misc")

	written, err := w.Write(r, nil)
	require.NoError(t, err)
	require.True(t, written)

	file := w.PagePath("a")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(file, old, old))

	written, err = w.Write(r, nil)
	require.NoError(t, err)
	assert.False(t, written)
	st, err := os.Stat(file)
	require.NoError(t, err)
	assert.True(t, st.ModTime().Equal(old), "unchanged page must not be rewritten")

	r.Title = "Renamed"
	written, err = w.Write(r, nil)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestWrite_EscapesContent(t *testing.T) {
	w := newWriter(t)
	r := rec("a.png", "a", "misc")
	r.Title = `<script>alert("x")</script>`
	_, err := w.Write(r, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(w.PagePath("a"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<script>")
}

func TestWriteAll_AndRemove(t *testing.T) {
	w := newWriter(t)
	recs := []*asset.Record{rec("a.png", "a", "misc"), rec("b.png", "b", "misc")}

	st, err := w.WriteAll(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, Stats{Written: 2}, st)

	st, err = w.WriteAll(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, Stats{Unchanged: 2}, st)

	require.NoError(t, w.Remove("a"))
	assert.NoDirExists(t, filepath.Join(w.ItemsDir, "a"))
	assert.FileExists(t, w.PagePath("b"))
}

func TestWriteAll_ContinuesPastFailedPage(t *testing.T) {
	w := newWriter(t)
	bad := rec("x/bad.png", "a/b", "misc")
	recs := []*asset.Record{rec("a.png", "a", "misc"), bad, rec("b.png", "b", "misc")}

	st, err := w.WriteAll(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Written)
	require.Len(t, st.Failed, 1)
	assert.Same(t, bad, st.Failed[0].Record)
	assert.FileExists(t, w.PagePath("b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.WriteAll(ctx, recs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPagePath_RejectsTraversal(t *testing.T) {
	w := newWriter(t)
	for _, s := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.Empty(t, w.PagePath(s), s)
	}
	require.Error(t, w.Remove(".."))
	assert.True(t, strings.HasSuffix(w.PagePath("ok"), filepath.Join("items", "ok", PageFile)))
}
