package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileAssertions checks generated files relative to a base directory.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// Exists fails unless every relative path exists.
func (fa *FileAssertions) Exists(rels ...string) *FileAssertions {
	fa.t.Helper()
	for _, rel := range rels {
		if _, err := os.Stat(fa.path(rel)); err != nil {
			fa.t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
	return fa
}

// Missing fails if any relative path exists.
func (fa *FileAssertions) Missing(rels ...string) *FileAssertions {
	fa.t.Helper()
	for _, rel := range rels {
		if _, err := os.Stat(fa.path(rel)); err == nil {
			fa.t.Errorf("expected %s to be absent", rel)
		}
	}
	return fa
}

// Contains fails unless the file contains substr.
func (fa *FileAssertions) Contains(rel, substr string) *FileAssertions {
	fa.t.Helper()
	data, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("read %s: %v", rel, err)
		return fa
	}
	if !strings.Contains(string(data), substr) {
		fa.t.Errorf("expected %s to contain %q", rel, substr)
	}
	return fa
}
