// Package incremental persists the build cache and classifies the current
// source tree against it.
package incremental

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
)

// SchemaVersion is the cache layout written by this build. Older layouts are
// read tolerantly; newer ones are discarded.
const SchemaVersion = 1

// Entry is the cached state of one source file.
type Entry struct {
	Fingerprint         string        `json:"fingerprint"`
	MetadataFingerprint string        `json:"metadataFingerprint,omitempty"`
	// SlugBase is the candidate Record.Slug was allocated from. Empty in
	// caches written before it was recorded.
	SlugBase            string        `json:"slugBase,omitempty"`
	LastModifiedTime    time.Time     `json:"lastModifiedTime"`
	Record              *asset.Record `json:"record"`
}

// BuildCache is the persisted record of the last committed build. It is the
// single source of truth for "done": artifacts not reflected here are
// regenerated by the next run.
type BuildCache struct {
	SchemaVersion      int               `json:"schemaVersion"`
	BuildID            string            `json:"buildId,omitempty"`
	LastBuildTimestamp time.Time         `json:"lastBuildTimestamp"`
	Revision           string            `json:"revision,omitempty"`
	ConfigSnapshot     string            `json:"configSnapshot,omitempty"`
	Entries            map[string]*Entry `json:"entries"`
}

// NewBuildCache returns an empty cache.
func NewBuildCache() *BuildCache {
	return &BuildCache{SchemaVersion: SchemaVersion, Entries: make(map[string]*Entry)}
}

// Load reads the cache at path. A missing file yields an empty cache. A
// corrupt file, or one written by a newer schema, is logged and also yields
// an empty cache so the next build is a full rebuild.
func Load(path string, logger *slog.Logger) (*BuildCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBuildCache(), nil
		}
		return nil, errors.WrapError(err, errors.CategoryCache, "read build cache").
			WithContext("path", path).Fatal().Build()
	}

	c := NewBuildCache()
	c.SchemaVersion = 0
	if err := json.Unmarshal(data, c); err != nil {
		logger.Warn("Build cache is corrupt, starting from an empty cache",
			logfields.Path(path), logfields.Error(err))
		return NewBuildCache(), nil
	}
	if c.SchemaVersion > SchemaVersion {
		logger.Warn("Build cache was written by a newer version, ignoring it",
			logfields.Path(path), slog.Int("schema_version", c.SchemaVersion))
		return NewBuildCache(), nil
	}
	c.SchemaVersion = SchemaVersion
	if c.Entries == nil {
		c.Entries = make(map[string]*Entry)
	}
	for key, e := range c.Entries {
		if e == nil || e.Record == nil || e.Record.Slug == "" || e.Fingerprint == "" {
			logger.Debug("Dropping incomplete cache entry", logfields.Asset(key))
			delete(c.Entries, key)
			continue
		}
		e.Record.SourcePath = key
	}
	return c, nil
}

// Commit atomically replaces the cache file. A crash before the final rename
// leaves the previous cache intact.
func (c *BuildCache) Commit(path string) error {
	c.SchemaVersion = SchemaVersion
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build cache: %w", err)
	}
	if err := atomicfile.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryCache, "commit build cache").
			WithContext("path", path).Fatal().Build()
	}
	return nil
}

// Get returns the entry for a source path.
func (c *BuildCache) Get(sourcePath string) (*Entry, bool) {
	e, ok := c.Entries[sourcePath]
	return e, ok
}

// Put stores a processed record together with the inputs it was built from.
func (c *BuildCache) Put(rec *asset.Record, metadataFingerprint, slugBase string) {
	c.Entries[rec.SourcePath] = &Entry{
		Fingerprint:         rec.Fingerprint,
		MetadataFingerprint: metadataFingerprint,
		SlugBase:            slugBase,
		LastModifiedTime:    rec.ModifiedAt,
		Record:              rec.Clone(),
	}
}

// Len reports the number of cached entries.
func (c *BuildCache) Len() int { return len(c.Entries) }

