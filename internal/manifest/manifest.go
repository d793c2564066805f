// Package manifest writes the JSON catalog consumed by the gallery front end.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// Manifest is the published asset catalog. Items is the sole data source for
// listing, search, tag and category pages.
type Manifest struct {
	UpdatedAt  time.Time       `json:"updatedAt"`
	BuildID    string          `json:"buildId,omitempty"`
	Revision   string          `json:"revision,omitempty"`
	Generator  string          `json:"generator,omitempty"`
	Categories []string        `json:"categories"`
	Tags       []string        `json:"tags"`
	Items      []*asset.Record `json:"items"`
}

// Info carries the build-level fields of a manifest.
type Info struct {
	UpdatedAt time.Time
	BuildID   string
	Revision  string
	Generator string
}

// New builds a manifest from records, sorted by source path, with the
// derived category and tag lists.
func New(records []*asset.Record, info Info) *Manifest {
	items := make([]*asset.Record, 0, len(records))
	cats := sets.New[string]()
	tags := sets.New[string]()
	for _, r := range records {
		items = append(items, r)
		cats.Add(r.Category)
		tags.Add(r.Tags...)
	}
	slices.SortFunc(items, func(a, b *asset.Record) int { return asset.Compare(a.SourcePath, b.SourcePath) })

	return &Manifest{
		UpdatedAt:  info.UpdatedAt.UTC(),
		BuildID:    info.BuildID,
		Revision:   info.Revision,
		Generator:  info.Generator,
		Categories: sets.Sorted(cats),
		Tags:       sets.Sorted(tags),
		Items:      items,
	}
}

// ToJSON serializes the manifest to JSON.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Read loads a manifest from disk.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// ItemsHash is a digest of the items array only. Two builds of an unchanged
// tree produce the same hash even though UpdatedAt differs.
func (m *Manifest) ItemsHash() (string, error) {
	data, err := json.Marshal(m.Items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Write atomically replaces the manifest at path.
func (m *Manifest) Write(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
