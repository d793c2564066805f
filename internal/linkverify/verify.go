// Package linkverify checks that generated detail pages and the manifest only
// reference files that exist in the published tree.
package linkverify

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/render"
)

// BrokenLink is a reference whose target does not exist.
type BrokenLink struct {
	Page   string // public path of the referring page, or the manifest
	URL    string // the reference as written
	Target string // public path it resolves to
}

// Report summarizes one verification run.
type Report struct {
	Pages   int
	Links   int
	Checked int
	Broken  []BrokenLink
}

// OK reports whether nothing is broken.
func (r *Report) OK() bool { return len(r.Broken) == 0 }

// Verifier resolves references relative to SiteRoot. Only targets under one
// of Prefixes are checked; others (e.g. the index page served by the site
// shell) are counted but not required to exist.
type Verifier struct {
	SiteRoot string
	Prefixes []string
}

// VerifyPages checks every <slug>/index.html below itemsDir.
func (v *Verifier) VerifyPages(ctx context.Context, itemsDir string) (*Report, error) {
	rep := &Report{}
	entries, err := os.ReadDir(itemsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return rep, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		page := filepath.Join(itemsDir, e.Name(), render.PageFile)
		if _, err := os.Stat(page); err != nil {
			continue
		}
		links, err := ExtractLinks(page)
		if err != nil {
			return nil, err
		}
		rep.Pages++
		pagePublic := v.public(page)
		for _, l := range links {
			rep.Links++
			if !l.IsInternal {
				continue
			}
			v.check(rep, pagePublic, l.URL, path.Dir(pagePublic))
		}
	}
	v.sort(rep)
	return rep, nil
}

// VerifyManifest checks that every item's original and thumbnail exist.
func (v *Verifier) VerifyManifest(m *manifest.Manifest, manifestPublic string) *Report {
	rep := &Report{}
	for _, it := range m.Items {
		for _, ref := range []string{it.OriginalPath, it.ThumbnailPath} {
			rep.Links++
			v.check(rep, manifestPublic, ref, ".")
		}
	}
	v.sort(rep)
	return rep
}

// Merge folds other into r.
func (r *Report) Merge(other *Report) {
	r.Pages += other.Pages
	r.Links += other.Links
	r.Checked += other.Checked
	r.Broken = append(r.Broken, other.Broken...)
}

func (v *Verifier) check(rep *Report, page, ref, baseDir string) {
	u, err := url.Parse(ref)
	if err != nil {
		rep.Broken = append(rep.Broken, BrokenLink{Page: page, URL: ref})
		return
	}
	target := path.Clean(path.Join(baseDir, u.Path))
	if target == ".." || strings.HasPrefix(target, "../") {
		rep.Broken = append(rep.Broken, BrokenLink{Page: page, URL: ref, Target: target})
		return
	}
	if strings.HasSuffix(u.Path, "/") || u.Path == "" {
		target = path.Join(target, render.PageFile)
	}
	if !v.covered(target) {
		return
	}
	rep.Checked++
	if _, err := os.Stat(filepath.Join(v.SiteRoot, filepath.FromSlash(target))); err != nil {
		rep.Broken = append(rep.Broken, BrokenLink{Page: page, URL: ref, Target: target})
	}
}

func (v *Verifier) covered(target string) bool {
	for _, p := range v.Prefixes {
		p = strings.Trim(p, "/")
		if p == "" || p == "." || target == p || strings.HasPrefix(target, p+"/") {
			return true
		}
	}
	return false
}

func (v *Verifier) public(abs string) string {
	rel, err := filepath.Rel(v.SiteRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (v *Verifier) sort(rep *Report) {
	slices.SortFunc(rep.Broken, func(a, b BrokenLink) int {
		if c := strings.Compare(a.Page, b.Page); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
}
