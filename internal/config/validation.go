package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Thumbnails.Width <= 0 {
		problems = append(problems, fmt.Sprintf("thumbnails.width must be positive, got %d", c.Thumbnails.Width))
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		problems = append(problems, fmt.Sprintf("thumbnails.quality must be within 1..100, got %d", c.Thumbnails.Quality))
	}
	if c.Build.Workers < 1 {
		problems = append(problems, fmt.Sprintf("build.workers must be >= 1, got %d", c.Build.Workers))
	}
	if c.Build.RelatedLimit < 0 {
		problems = append(problems, "build.related_limit must not be negative")
	}
	if len(c.Assets.Extensions) == 0 {
		problems = append(problems, "assets.extensions must not be empty")
	}
	thumbs := c.Paths.Thumbnails
	if filepath.IsAbs(thumbs) || strings.ContainsAny(thumbs, `/\`) || thumbs == "." || thumbs == ".." {
		problems = append(problems, fmt.Sprintf("paths.thumbnails must be a single directory name inside the assets root, got %q", thumbs))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.ValidationError("invalid configuration: " + strings.Join(problems, "; ")).
		WithContext("problems", len(problems)).
		Build()
}
