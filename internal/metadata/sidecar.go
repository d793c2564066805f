package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Sidecar is the manual metadata document stored next to an image.
type Sidecar struct {
	Title       string   `json:"title,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	License     string   `json:"license,omitempty"`
	Author      string   `json:"author,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// SidecarContributor reads "<name><Suffix>" next to an image, falling back
// to an entry keyed by file name in the directory-level DirectoryFile.
// Missing files are silent; unreadable files and malformed JSON are logged
// and treated as absent.
type SidecarContributor struct {
	Suffix        string
	DirectoryFile string
	logger        *slog.Logger
	dirCache      *lru.Cache[string, dirSidecar]
}

type dirSidecar struct {
	stamp   string
	entries map[string]json.RawMessage
}

// NewSidecarContributor creates a contributor. Parsed directory-level files
// are memoized in an LRU keyed by path and invalidated by size/mtime.
func NewSidecarContributor(suffix, directoryFile string, logger *slog.Logger) *SidecarContributor {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, dirSidecar](256)
	if err != nil {
		panic(fmt.Sprintf("sidecar cache: %v", err))
	}
	return &SidecarContributor{
		Suffix:        suffix,
		DirectoryFile: directoryFile,
		logger:        logger,
		dirCache:      cache,
	}
}

func (s *SidecarContributor) Name() string { return "sidecar" }

func (s *SidecarContributor) Contribute(_ context.Context, src Source) (Partial, error) {
	raw, where := s.lookup(src)
	if raw == nil {
		return Partial{}, nil
	}
	var sc Sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		s.logger.Warn("Ignoring malformed sidecar metadata",
			logfields.Asset(src.RelPath), logfields.Path(where), logfields.Error(err))
		return Partial{}, nil
	}
	return Partial{
		Title:       sc.Title,
		Description: sc.Description,
		Category:    sc.Category,
		License:     sc.License,
		Author:      sc.Author,
		Tags:        sc.Tags,
		Keywords:    sc.Keywords,
	}, nil
}

// Fingerprint hashes the sidecar content that applies to src, or returns ""
// when there is none. Change detection combines it with the image hash so a
// metadata-only edit is seen as a modification.
func (s *SidecarContributor) Fingerprint(src Source) string {
	raw, _ := s.lookup(src)
	if raw == nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// lookup returns the raw JSON document for src and where it came from, or
// nil when no readable sidecar applies.
func (s *SidecarContributor) lookup(src Source) ([]byte, string) {
	if s.Suffix != "" {
		ext := filepath.Ext(src.AbsPath)
		path := strings.TrimSuffix(src.AbsPath, ext) + s.Suffix
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			return data, path
		case !os.IsNotExist(err):
			s.logger.Warn("Ignoring unreadable sidecar metadata",
				logfields.Asset(src.RelPath), logfields.Path(path), logfields.Error(err))
		}
	}
	if s.DirectoryFile == "" {
		return nil, ""
	}

	path := filepath.Join(filepath.Dir(src.AbsPath), s.DirectoryFile)
	dir := s.loadDir(path)
	if dir.entries == nil {
		return nil, path
	}
	name := filepath.Base(src.AbsPath)
	if raw, ok := dir.entries[name]; ok {
		return raw, path
	}
	if raw, ok := dir.entries[strings.TrimSuffix(name, filepath.Ext(name))]; ok {
		return raw, path
	}
	return nil, path
}

func (s *SidecarContributor) loadDir(path string) dirSidecar {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Ignoring unreadable directory sidecar", logfields.Path(path), logfields.Error(err))
		}
		return dirSidecar{}
	}
	if !info.Mode().IsRegular() {
		s.logger.Warn("Ignoring directory sidecar that is not a regular file", logfields.Path(path))
		return dirSidecar{}
	}
	stamp := fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
	if cached, ok := s.dirCache.Get(path); ok && cached.stamp == stamp {
		return cached
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("Ignoring unreadable directory sidecar", logfields.Path(path), logfields.Error(err))
		return dirSidecar{}
	}
	entry := dirSidecar{stamp: stamp}
	if err := json.Unmarshal(data, &entry.entries); err != nil {
		s.logger.Warn("Ignoring malformed directory sidecar", logfields.Path(path), logfields.Error(err))
		entry.entries = nil
	}
	s.dirCache.Add(path, entry)
	return entry
}
