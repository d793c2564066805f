package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "assetbuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Site       SiteConfig       `yaml:"site"`
	Assets     AssetsConfig     `yaml:"assets"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails"`
	Tagging    *TaggingConfig   `yaml:"tagging,omitempty"`
	Build      BuildConfig      `yaml:"build"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Events     EventsConfig     `yaml:"events"`
	Watch      WatchConfig      `yaml:"watch"`
}

// PathsConfig locates the source tree and every generated artifact. Relative
// paths resolve against Root; Thumbnails is a subdirectory of Assets.
type PathsConfig struct {
	Root       string `yaml:"root"`
	Assets     string `yaml:"assets"`
	Thumbnails string `yaml:"thumbnails"`
	Items      string `yaml:"items"`
	Manifest   string `yaml:"manifest"`
	Sitemap    string `yaml:"sitemap"`
	Cache      string `yaml:"cache"`
}

// SiteConfig describes the published site.
type SiteConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Title   string `yaml:"title"`
}

// AssetsConfig controls which files are ingested and their metadata defaults.
type AssetsConfig struct {
	Extensions       []string `yaml:"extensions"`
	DefaultLicense   string   `yaml:"default_license"`
	SidecarSuffix    string   `yaml:"sidecar_suffix"`
	DirectorySidecar string   `yaml:"directory_sidecar"`
}

// ThumbnailsConfig controls derivative generation.
type ThumbnailsConfig struct {
	Width   int `yaml:"width"`
	Quality int `yaml:"quality"`
}

// BuildConfig selects the build mode and execution strategy.
type BuildConfig struct {
	Mode         BuildMode `yaml:"mode"`
	Workers      int       `yaml:"workers"`
	RelatedLimit int       `yaml:"related_limit"`
}

// MonitoringConfig groups logging and metrics settings.
type MonitoringConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig enables Prometheus export. Textfile is written after every
// build; Listen serves /metrics in watch mode.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
	Listen   string `yaml:"listen,omitempty"`
}

// EventsConfig configures build history and event publishing.
type EventsConfig struct {
	History string     `yaml:"history"`
	NATS    NATSConfig `yaml:"nats"`
}

type NATSConfig struct {
	URL     string      `yaml:"url,omitempty"`
	Subject string      `yaml:"subject"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig controls retries of transient publish failures.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
}

// Load reads, expands and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read config file").Fatal().Build()
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loadEnvFiles()
		cfg := Default()
		if err := cfg.finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

// Parse decodes YAML configuration content after ${VAR} expansion.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	cfg.Tagging = nil
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "unmarshal config").Fatal().UserAction().Build()
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	applyDefaults(c)
	root, err := filepath.Abs(c.Paths.Root)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "resolve root path").Fatal().Build()
	}
	c.Paths.Root = root
	return c.Validate()
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Default()
	example.Site.BaseURL = "https://example.github.io/game-assets/"
	example.Monitoring.Metrics.Textfile = "metrics/assetbuilder.prom"

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example config").Build()
	}
	header := "# assetbuilder configuration\n# Values support ${ENV} expansion; .env and .env.local are loaded first.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write config file").Fatal().Build()
	}
	return nil
}
