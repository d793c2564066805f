package config

import (
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/normalization"
)

// BuildMode selects between incremental and full builds.
type BuildMode string

const (
	BuildModeIncremental BuildMode = "incremental"
	BuildModeFull        BuildMode = "full"
)

var buildModeNormalizer = normalization.NewNormalizer(map[string]BuildMode{
	"incremental": BuildModeIncremental,
	"full":        BuildModeFull,
}, BuildModeIncremental)

func NormalizeBuildMode(raw string) BuildMode { return buildModeNormalizer.Normalize(raw) }

// ParseBuildMode is the strict variant used for CLI overrides.
func ParseBuildMode(raw string) (BuildMode, error) {
	return buildModeNormalizer.NormalizeWithError(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel { return logLevelNormalizer.Normalize(raw) }

// SlogLevel maps the configured level onto slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat { return logFormatNormalizer.Normalize(raw) }

// RetryBackoffMode enumerates supported backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

func NormalizeRetryBackoffMode(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}
