package config

import "path/filepath"

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}

// RootDir is the published site root (.nojekyll lives here).
func (c *Config) RootDir() string { return c.Paths.Root }

func (c *Config) AssetsDir() string { return c.resolve(c.Paths.Assets) }

// ThumbnailsDir is the reserved derived-artifact directory inside the assets tree.
func (c *Config) ThumbnailsDir() string { return filepath.Join(c.AssetsDir(), c.Paths.Thumbnails) }

func (c *Config) ItemsDir() string     { return c.resolve(c.Paths.Items) }
func (c *Config) ManifestPath() string { return c.resolve(c.Paths.Manifest) }
func (c *Config) SitemapPath() string  { return c.resolve(c.Paths.Sitemap) }
func (c *Config) CachePath() string    { return c.resolve(c.Paths.Cache) }

// HistoryPath returns the build history database, or "" when disabled.
func (c *Config) HistoryPath() string {
	if c.Events.History == "" {
		return ""
	}
	return c.resolve(c.Events.History)
}

// PublicPath converts an absolute path inside the site root into the
// slash-separated path used in URLs and the manifest.
func (c *Config) PublicPath(abs string) string {
	rel, err := filepath.Rel(c.Paths.Root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// MetricsTextfilePath returns the Prometheus textfile target, or "" when
// disabled.
func (c *Config) MetricsTextfilePath() string {
	if c.Monitoring.Metrics.Textfile == "" {
		return ""
	}
	return c.resolve(c.Monitoring.Metrics.Textfile)
}
