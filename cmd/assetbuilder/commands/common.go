package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"assetbuilder.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Override monitoring.logging.format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build thumbnails, manifest, sitemap and detail pages"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild whenever the assets tree changes"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent builds from the build history"`
	Verify  VerifyCmd  `cmd:"" help:"Check generated pages and the manifest for broken references"`
}

// AfterApply runs after flag parsing; sets up logging once with flag values.
// loadConfig refines it once the configuration is known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	setupLogging(c, config.LoggingConfig{Level: config.LogLevelInfo, Format: config.NormalizeLogFormat(c.LogFormat)})
	return nil
}

func setupLogging(c *CLI, lc config.LoggingConfig) {
	level := lc.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := lc.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// loadConfig reads the configuration (falling back to defaults when the file
// does not exist) and applies its logging settings.
func loadConfig(c *CLI) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, err
	}
	setupLogging(c, cfg.Monitoring.Logging)
	return cfg, nil
}
