package config

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Snapshot computes a stable hash of the settings that shape AssetRecords and
// thumbnails. A cache written under a different snapshot cannot be trusted to
// carry records forward. Map and slice fields are order-insensitive.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) { h.Write([]byte(strings.Join(parts, "="))); h.Write([]byte{0}) }

	w("paths.assets", c.Paths.Assets)
	w("paths.thumbnails", c.Paths.Thumbnails)
	exts := append([]string{}, c.Assets.Extensions...)
	sort.Strings(exts)
	w("assets.extensions", strings.Join(exts, ","))
	w("assets.default_license", c.Assets.DefaultLicense)
	w("assets.sidecar_suffix", c.Assets.SidecarSuffix)
	w("assets.directory_sidecar", c.Assets.DirectorySidecar)
	w("thumbnails.width", strconv.Itoa(c.Thumbnails.Width))
	w("thumbnails.quality", strconv.Itoa(c.Thumbnails.Quality))
	if c.Tagging != nil {
		writeTable(w, "tagging.keywords", c.Tagging.Keywords)
		writeTable(w, "tagging.segments", c.Tagging.Segments)
		writeTable(w, "tagging.categories", c.Tagging.Categories)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeTable(w func(...string), label string, table map[string][]string) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string{}, table[k]...)
		sort.Strings(vals)
		w(label, k, strings.Join(vals, ","))
	}
}
