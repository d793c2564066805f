// Package sitemap renders the sitemap protocol 0.9 document for the gallery.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// Namespace is the sitemap protocol namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc string `xml:"loc"`
}

// Options controls route generation.
type Options struct {
	BaseURL string // must end with "/"
	// ItemsPath is the public path of the detail page directory, e.g. "items".
	ItemsPath string
}

// Routes returns every unique public URL in a stable order: home, index,
// tag index, one per category, one per tag, then per asset its original file
// and its detail page.
func Routes(records []*asset.Record, opts Options) []string {
	base := opts.BaseURL
	itemsPath := opts.ItemsPath
	if itemsPath == "" {
		itemsPath = "items"
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b *asset.Record) int { return asset.Compare(a.SourcePath, b.SourcePath) })

	cats := sets.New[string]()
	tags := sets.New[string]()
	for _, r := range sorted {
		cats.Add(r.Category)
		tags.Add(r.Tags...)
	}

	var out []string
	seen := sets.New[string]()
	add := func(u string) {
		if !seen.Has(u) {
			seen.Add(u)
			out = append(out, u)
		}
	}

	add(base)
	add(base + "index.html")
	add(base + "tags.html")
	for _, c := range sets.Sorted(cats) {
		add(base + "?category=" + url.QueryEscape(c))
	}
	for _, t := range sets.Sorted(tags) {
		add(base + "?tag=" + url.QueryEscape(t))
	}
	for _, r := range sorted {
		if r.OriginalPath != "" {
			add(base + escapePath(r.OriginalPath))
		}
		add(base + escapePath(path.Join(itemsPath, r.Slug)) + "/")
	}
	return out
}

// Render encodes routes as a sitemap document. lastmod is omitted so an
// unchanged catalog renders byte-identical output.
func Render(routes []string) ([]byte, error) {
	doc := urlset{Xmlns: Namespace}
	for _, r := range routes {
		doc.URLs = append(doc.URLs, entry{Loc: r})
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write renders records and atomically replaces the sitemap at file. It
// returns the number of routes written.
func Write(file string, records []*asset.Record, opts Options) (int, error) {
	routes := Routes(records, opts)
	data, err := Render(routes)
	if err != nil {
		return 0, err
	}
	if err := atomicfile.WriteFile(file, data, 0o644); err != nil {
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	return len(routes), nil
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
