// Package metadata merges the metadata sources of an asset into one record.
//
// Contributors are consulted in precedence order. For scalar fields the first
// non-empty value wins; tags from every contributor are unioned.
package metadata

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// Source identifies the asset being resolved.
type Source struct {
	AbsPath string
	RelPath string // slash-separated, relative to the assets root
}

// Partial is what a single contributor knows about an asset.
type Partial struct {
	Title       string
	Description string
	Category    string
	License     string
	Author      string
	Tags        []string
	Keywords    []string
}

// Contributor supplies a partial record for an asset.
type Contributor interface {
	Name() string
	Contribute(ctx context.Context, src Source) (Partial, error)
}

// Resolved is the merged metadata for an asset.
type Resolved struct {
	Title       string
	Description string
	Category    string
	License     string
	Author      string
	Tags        []string // lowercased, deduplicated, sorted, never empty strings
	Keywords    []string
}

// Resolver merges contributors in precedence order (highest first).
type Resolver struct {
	contributors []Contributor
	logger       *slog.Logger
}

// NewResolver creates a resolver over the given contributors.
func NewResolver(logger *slog.Logger, contributors ...Contributor) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{contributors: contributors, logger: logger}
}

// Resolve merges every contributor's partial record for src.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Resolved, error) {
	var (
		out      Resolved
		tags     = sets.New[string]()
		keywords = sets.New[string]()
	)
	for _, c := range r.contributors {
		p, err := c.Contribute(ctx, src)
		if err != nil {
			return Resolved{}, errors.WrapError(err, errors.CategoryMetadata, "resolve metadata").
				WithContext("contributor", c.Name()).
				WithContext("asset", src.RelPath).
				Build()
		}
		first(&out.Title, p.Title)
		first(&out.Description, p.Description)
		first(&out.Category, p.Category)
		first(&out.License, p.License)
		first(&out.Author, p.Author)
		addClean(tags, p.Tags)
		addClean(keywords, p.Keywords)
	}

	if out.Category == "" {
		out.Category = asset.MiscCategory
	}
	if out.Title == "" {
		out.Title = asset.BaseName(src.RelPath)
	}
	if out.Description == "" {
		out.Description = out.Title + " - " + out.Category
	}
	out.Tags = sets.Sorted(tags)
	if k := sets.Sorted(keywords); len(k) > 0 {
		out.Keywords = k
	}
	return out, nil
}

func first(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

func addClean(dst sets.Set[string], vals []string) {
	for _, v := range vals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			dst.Add(v)
		}
	}
}
