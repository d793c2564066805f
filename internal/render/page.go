// Package render writes the per-asset detail pages.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/markdown"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
)

// PageFile is the file written inside each asset's directory.
const PageFile = "index.html"

//go:embed templates/*.tmpl
var templatesFS embed.FS

var detailTemplate = template.Must(template.New("detail.html.tmpl").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templatesFS, "templates/detail.html.tmpl"))

// Writer renders detail pages into ItemsDir/<slug>/index.html.
type Writer struct {
	ItemsDir     string
	ItemsPath    string // public path of ItemsDir relative to the site root
	SiteTitle    string
	Generator    string
	RelatedLimit int
	Logger       *slog.Logger
}

// Stats counts the outcome of WriteAll.
type Stats struct {
	Written   int
	Unchanged int
	Failed    []PageError
}

// PageError is a page that could not be rendered or written.
type PageError struct {
	Record *asset.Record
	Err    error
}

func (e PageError) Error() string {
	return fmt.Sprintf("detail page %s: %v", e.Record.Slug, e.Err)
}

func (e PageError) Unwrap() error { return e.Err }

type relatedView struct {
	Slug          string
	Title         string
	ThumbnailPath string
}

type pageData struct {
	Root          string
	ItemsPath     string
	SiteTitle     string
	Generator     string
	Fingerprint   string
	Slug          string
	Title         string
	Summary       string
	Description   template.HTML
	Category      string
	CategoryLabel string
	Tags          []string
	Keywords      []string
	License       string
	Author        string
	Width         int
	Height        int
	Dimensions    string
	Format        string
	FileSize      string
	Filename      string
	OriginalPath  string
	ThumbnailPath string
	Related       []relatedView
}

var titleCaser = cases.Title(language.English)

// WriteAll renders a page for every record, relating each to the full set.
// Pages whose fingerprint is unchanged are left untouched. A page that fails
// is reported in Stats.Failed and the rest are still written; only
// cancellation returns an error.
func (w *Writer) WriteAll(ctx context.Context, records []*asset.Record) (Stats, error) {
	var st Stats
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		written, err := w.Write(rec, Related(rec, records, w.RelatedLimit))
		if err != nil {
			w.logger().Warn("Failed to write detail page",
				logfields.Asset(rec.SourcePath), logfields.Slug(rec.Slug), logfields.Error(err))
			st.Failed = append(st.Failed, PageError{Record: rec, Err: err})
			continue
		}
		if written {
			st.Written++
		} else {
			st.Unchanged++
		}
	}
	return st, nil
}

// Write renders one page and reports whether the file was (re)written.
func (w *Writer) Write(rec *asset.Record, related []*asset.Record) (bool, error) {
	dest := w.PagePath(rec.Slug)
	if dest == "" {
		return false, fmt.Errorf("invalid slug %q for %s", rec.Slug, rec.SourcePath)
	}
	data, err := w.data(rec, related)
	if err != nil {
		return false, err
	}

	unsigned, err := execute(data)
	if err != nil {
		return false, err
	}
	data.Fingerprint = mdfp.CalculateFingerprintFromParts("slug: "+rec.Slug, string(unsigned))

	if existing, err := ReadFingerprint(dest); err == nil && existing == data.Fingerprint {
		return false, nil
	}

	page, err := execute(data)
	if err != nil {
		return false, err
	}
	if err := atomicfile.WriteFile(dest, page, 0o644); err != nil {
		return false, fmt.Errorf("write detail page: %w", err)
	}
	w.logger().Debug("Wrote detail page", logfields.Slug(rec.Slug), logfields.Fingerprint(data.Fingerprint))
	return true, nil
}

// Remove deletes the detail directory for slug.
func (w *Writer) Remove(slug string) error {
	dest := w.PagePath(slug)
	if dest == "" {
		return fmt.Errorf("invalid slug %q", slug)
	}
	return os.RemoveAll(filepath.Dir(dest))
}

// PagePath returns the page file for slug, or "" when slug could escape
// ItemsDir.
func (w *Writer) PagePath(slug string) string {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return filepath.Join(w.ItemsDir, slug, PageFile)
}

// ReadFingerprint returns the fingerprint meta tag of an existing page.
func ReadFingerprint(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", file, err)
	}
	fp, ok := doc.Find(`meta[name="fingerprint"]`).Attr("content")
	if !ok {
		return "", fmt.Errorf("no fingerprint in %s", file)
	}
	return fp, nil
}

func (w *Writer) data(rec *asset.Record, related []*asset.Record) (*pageData, error) {
	desc, err := markdown.Render(rec.Description)
	if err != nil {
		return nil, err
	}
	itemsPath := strings.Trim(w.ItemsPath, "/")
	if itemsPath == "" {
		itemsPath = "items"
	}

	d := &pageData{
		Root:          strings.Repeat("../", strings.Count(itemsPath, "/")+2),
		ItemsPath:     itemsPath,
		SiteTitle:     w.SiteTitle,
		Generator:     w.Generator,
		Slug:          rec.Slug,
		Title:         rec.Title,
		Summary:       markdown.PlainText(rec.Description),
		Description:   desc,
		Category:      rec.Category,
		CategoryLabel: titleCaser.String(rec.Category),
		Tags:          rec.Tags,
		Keywords:      rec.Keywords,
		License:       rec.License,
		Author:        rec.Author,
		Dimensions:    "?",
		Format:        strings.ToUpper(strings.TrimPrefix(path.Ext(rec.OriginalPath), ".")),
		FileSize:      HumanSize(rec.Bytes),
		Filename:      path.Base(rec.OriginalPath),
		OriginalPath:  rec.OriginalPath,
		ThumbnailPath: rec.ThumbnailPath,
	}
	if wd, ht, ok := rec.Dimensions(); ok {
		d.Width, d.Height = wd, ht
		d.Dimensions = strconv.Itoa(wd) + " × " + strconv.Itoa(ht)
	}
	for _, r := range related {
		d.Related = append(d.Related, relatedView{Slug: r.Slug, Title: r.Title, ThumbnailPath: r.ThumbnailPath})
	}
	return d, nil
}

func execute(d *pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := detailTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render detail page: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
