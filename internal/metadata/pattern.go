package metadata

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// PatternContributor adds tags from keyword and path-segment tables. It only
// ever contributes tags.
type PatternContributor struct {
	// Keywords match as substrings of the lowercased file name (no extension).
	Keywords map[string][]string
	// Segments match whole directory names.
	Segments map[string][]string
	// Categories match the first directory name.
	Categories map[string][]string
}

// NewPatternContributor builds a contributor from tagging configuration.
func NewPatternContributor(cfg *config.TaggingConfig) PatternContributor {
	if cfg == nil {
		cfg = config.DefaultTagging()
	}
	return PatternContributor{Keywords: cfg.Keywords, Segments: cfg.Segments, Categories: cfg.Categories}
}

func (PatternContributor) Name() string { return "pattern" }

func (p PatternContributor) Contribute(_ context.Context, src Source) (Partial, error) {
	dirs, _ := asset.Segments(src.RelPath)
	name := strings.ToLower(asset.BaseName(src.RelPath))

	var tags []string
	for kw, kwTags := range p.Keywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			tags = append(tags, kwTags...)
		}
	}
	for _, d := range dirs {
		tags = append(tags, p.Segments[strings.ToLower(d)]...)
	}
	if len(dirs) > 0 {
		tags = append(tags, p.Categories[strings.ToLower(dirs[0])]...)
	}
	return Partial{Tags: tags}, nil
}
