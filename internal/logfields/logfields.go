package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyAsset       = "asset"
	KeySlug        = "slug"
	KeyPath        = "path"
	KeyWorker      = "worker"
	KeyCount       = "count"
	KeyMode        = "mode"
	KeyFingerprint = "fingerprint"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Asset(rel string) slog.Attr      { return slog.String(KeyAsset, rel) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Worker(i int) slog.Attr          { return slog.Int(KeyWorker, i) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }

// Fingerprint logs a shortened content hash.
func Fingerprint(fp string) slog.Attr {
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return slog.String(KeyFingerprint, fp)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
