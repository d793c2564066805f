// Package testutil holds fixtures shared by package tests: generated images,
// git repositories and file assertions.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// WriteImage encodes a solid w×h image at path. The format follows the
// extension: .jpg/.jpeg produce JPEG, anything else PNG.
func WriteImage(t *testing.T, path string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			t.Fatalf("encode jpeg: %v", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode png: %v", err)
		}
	}
	WriteFile(t, path, buf.Bytes())
	return path
}

// WriteFile writes data, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CommitAll initializes a git repository at dir (if needed), stages
// everything and commits. It returns the commit hash.
func CommitAll(t *testing.T, dir, message string) string {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			t.Fatalf("failed to initialize git repo: %v", err)
		}
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := w.Add("."); err != nil {
		t.Fatalf("failed to add files: %v", err)
	}
	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}
