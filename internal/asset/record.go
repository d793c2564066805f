// Package asset defines the canonical AssetRecord shared by every stage of
// the pipeline, the build cache and the manifest.
package asset

import (
	"path"
	"strings"
	"time"
)

// MiscCategory is used when no category can be derived for an asset.
const MiscCategory = "misc"

// Record is the resolved, canonical description of one source image.
//
// SourcePath is the slash-separated path relative to the assets root and is
// the identity key for cache lookups. Slug is unique within one build and
// stable for a given SourcePath across incremental builds.
type Record struct {
	ID                   string    `json:"id"`
	Slug                 string    `json:"slug"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Category             string    `json:"category"`
	Tags                 []string  `json:"tags"`
	License              string    `json:"license"`
	Author               string    `json:"author,omitempty"`
	Keywords             []string  `json:"keywords,omitempty"`
	Width                *int      `json:"width"`
	Height               *int      `json:"height"`
	Bytes                int64     `json:"bytes"`
	Fingerprint          string    `json:"fingerprint"`
	ModifiedAt           time.Time `json:"modifiedAt"`
	SourcePath           string    `json:"sourcePath"`
	OriginalPath         string    `json:"originalPath"`
	ThumbnailPath        string    `json:"thumbnailPath"`
	ThumbnailFingerprint string    `json:"thumbnailFingerprint,omitempty"`
}

// Dimensions returns the pixel size when known.
func (r *Record) Dimensions() (w, h int, ok bool) {
	if r.Width == nil || r.Height == nil {
		return 0, 0, false
	}
	return *r.Width, *r.Height, true
}

// SetDimensions records a decoded pixel size.
func (r *Record) SetDimensions(w, h int) {
	r.Width, r.Height = &w, &h
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Keywords = append([]string(nil), r.Keywords...)
	if r.Width != nil {
		w := *r.Width
		cp.Width = &w
	}
	if r.Height != nil {
		h := *r.Height
		cp.Height = &h
	}
	return &cp
}

// SortKey is the normalized processing order key for a source path.
func SortKey(sourcePath string) string {
	return strings.ToLower(sourcePath)
}

// Less orders source paths by SortKey, falling back to the raw path so two
// paths differing only in case still have a total order.
func Less(a, b string) bool {
	ka, kb := SortKey(a), SortKey(b)
	if ka != kb {
		return ka < kb
	}
	return a < b
}

// Compare is the three-way form of Less for slices.SortFunc.
func Compare(a, b string) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Segments splits a source path into its directory segments and file name.
func Segments(sourcePath string) (dirs []string, file string) {
	parts := strings.Split(path.Clean(sourcePath), "/")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// BaseName returns the file name without its extension.
func BaseName(sourcePath string) string {
	name := path.Base(sourcePath)
	return strings.TrimSuffix(name, path.Ext(name))
}
