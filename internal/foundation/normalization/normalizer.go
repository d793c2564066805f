// Package normalization maps loosely written configuration strings onto typed enums.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer provides type-safe string-to-enum normalization.
type Normalizer[T comparable] struct {
	validValues  map[string]T
	defaultValue T
	validKeys    []string
}

// NewNormalizer creates a normalizer from string->value pairs. Keys are
// matched case-insensitively with surrounding whitespace ignored.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	validKeys := make([]string, 0, len(values))
	for k, v := range values {
		key := clean(k)
		normalized[key] = v
		validKeys = append(validKeys, key)
	}
	sort.Strings(validKeys)

	return &Normalizer[T]{
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    validKeys,
	}
}

// Normalize returns the matching value, or the default when raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.validValues[clean(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError is the strict variant of Normalize.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, ok := n.validValues[clean(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// ValidKeys returns all accepted keys in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return append([]string(nil), n.validKeys...)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
