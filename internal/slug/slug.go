// Package slug allocates unique, URL-safe identifiers for assets within one
// build pass.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

// Fallback is used when a candidate normalizes to the empty string.
const Fallback = "asset"

var (
	invalidRun = regexp.MustCompile(`[^a-z0-9\-_.]+`)
	dashRun    = regexp.MustCompile(`-+`)
)

// Normalize lowercases s, collapses characters outside [a-z0-9-_.] to '-',
// collapses runs of '-' and trims leading and trailing '-'.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = invalidRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Allocator hands out slugs for one build pass. It is not safe for
// concurrent use; sharded workers each receive their own Clone.
type Allocator struct {
	used map[string]struct{}
	next map[string]int
}

// New returns an empty allocator.
func New() *Allocator {
	return &Allocator{
		used: make(map[string]struct{}),
		next: make(map[string]int),
	}
}

// Seed reserves an already-assigned slug so later allocations never return
// it. base is the candidate the slug was allocated from; only when slug is
// base itself or base-N does base's next suffix advance. A slug whose base is
// unknown is reserved without touching any counter.
func (a *Allocator) Seed(slug, base string) {
	if slug == "" {
		return
	}
	a.used[slug] = struct{}{}
	if n, ok := Suffix(slug, base); ok && n+1 > a.next[base] {
		a.next[base] = n + 1
	}
}

// Allocate normalizes candidate and returns the first free slug for it: the
// base itself on first use, then base-1, base-2 and so on.
func (a *Allocator) Allocate(candidate string) string {
	base := Normalize(candidate)
	if base == "" {
		base = Fallback
	}
	n := a.next[base]
	for {
		s := format(base, n)
		n++
		if _, taken := a.used[s]; !taken {
			a.next[base] = n
			a.used[s] = struct{}{}
			return s
		}
	}
}

// Claim reserves slug, allocated from base, exactly if it is still free.
func (a *Allocator) Claim(slug, base string) bool {
	if _, taken := a.used[slug]; taken || slug == "" {
		return false
	}
	a.Seed(slug, base)
	return true
}

// Clone returns an independent copy.
func (a *Allocator) Clone() *Allocator {
	c := &Allocator{
		used: make(map[string]struct{}, len(a.used)),
		next: make(map[string]int, len(a.next)),
	}
	for k := range a.used {
		c.used[k] = struct{}{}
	}
	for k, v := range a.next {
		c.next[k] = v
	}
	return c
}

// Suffix reports the collision suffix of slug relative to base: 0 for base
// itself, N for "base-N". ok is false when slug was not allocated from base.
func Suffix(slug, base string) (n int, ok bool) {
	if base == "" {
		return 0, false
	}
	if slug == base {
		return 0, true
	}
	tail, found := strings.CutPrefix(slug, base+"-")
	if !found || tail == "" || tail[0] < '1' || tail[0] > '9' {
		return 0, false
	}
	v, err := strconv.Atoi(tail)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func format(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
