package config

import (
	"os"
	"strings"
	"time"
)

// Default returns a configuration with every default applied, including the
// built-in tagging tables.
func Default() *Config {
	cfg := &Config{Tagging: DefaultTagging()}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(c *Config) {
	setString(&c.Paths.Root, ".")
	setString(&c.Paths.Assets, "assets")
	setString(&c.Paths.Thumbnails, "_thumbs")
	setString(&c.Paths.Items, "items")
	setString(&c.Paths.Manifest, "assets.json")
	setString(&c.Paths.Sitemap, "sitemap.xml")
	setString(&c.Paths.Cache, ".build-cache.json")

	setString(&c.Site.Title, "Free Game Materials")
	setString(&c.Site.BaseURL, baseURLFromEnv())
	if !strings.HasSuffix(c.Site.BaseURL, "/") {
		c.Site.BaseURL += "/"
	}

	if len(c.Assets.Extensions) == 0 {
		c.Assets.Extensions = []string{"jpg", "jpeg", "png", "webp"}
	}
	for i, ext := range c.Assets.Extensions {
		c.Assets.Extensions[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	}
	setString(&c.Assets.DefaultLicense, "CC0-1.0")
	setString(&c.Assets.SidecarSuffix, ".meta.json")
	setString(&c.Assets.DirectorySidecar, ".meta.json")

	setInt(&c.Thumbnails.Width, 480)
	setInt(&c.Thumbnails.Quality, 80)

	if c.Tagging == nil {
		c.Tagging = DefaultTagging()
	}

	c.Build.Mode = NormalizeBuildMode(string(c.Build.Mode))
	setInt(&c.Build.Workers, 1)
	setInt(&c.Build.RelatedLimit, 6)

	c.Monitoring.Logging.Level = NormalizeLogLevel(string(c.Monitoring.Logging.Level))
	c.Monitoring.Logging.Format = NormalizeLogFormat(string(c.Monitoring.Logging.Format))

	setString(&c.Events.History, ".build-history.db")
	setString(&c.Events.NATS.Subject, "assetbuilder.builds")
	c.Events.NATS.Retry.Backoff = NormalizeRetryBackoffMode(string(c.Events.NATS.Retry.Backoff))
	if c.Events.NATS.Retry.Initial <= 0 {
		c.Events.NATS.Retry.Initial = 500 * time.Millisecond
	}
	if c.Events.NATS.Retry.Max <= 0 {
		c.Events.NATS.Retry.Max = 5 * time.Second
	}
	// Negative disables retries.
	setInt(&c.Events.NATS.Retry.MaxRetries, 2)

	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.ResyncInterval <= 0 {
		c.Watch.ResyncInterval = 10 * time.Minute
	}
}

// baseURLFromEnv derives the GitHub Pages URL from GITHUB_REPOSITORY
// ("owner/repo"), falling back to a local preview address.
func baseURLFromEnv() string {
	repo := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY"))
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "http://localhost:8080/"
	}
	return "https://" + owner + ".github.io/" + name + "/"
}

func setString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
