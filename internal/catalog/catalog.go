// Package catalog walks the assets tree and yields candidate source images
// with their content fingerprints.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/util/sets"
)

// File is one candidate source image.
type File struct {
	AbsPath     string
	RelPath     string // slash-separated, relative to the catalog root
	Ext         string // lowercased, with leading dot
	Size        int64
	ModTime     time.Time
	Fingerprint string // hex SHA-256 of the file bytes
}

// TraversalError reports a root that does not exist or cannot be read.
type TraversalError struct {
	Root string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.Root, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// EntryError reports a single unreadable entry below the root. It never
// aborts the walk.
type EntryError struct {
	RelPath string
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("read %s: %v", e.RelPath, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Catalog enumerates images below Root.
type Catalog struct {
	Root       string
	Extensions sets.Set[string] // lowercased, without dot
	// Exclude lists slash-separated directories relative to Root whose
	// contents are never ingested.
	Exclude []string
	Logger  *slog.Logger
}

// New builds a catalog for root accepting the given extensions.
func New(root string, extensions []string, exclude ...string) *Catalog {
	exts := sets.New[string]()
	for _, e := range extensions {
		exts.Add(strings.TrimPrefix(strings.ToLower(e), "."))
	}
	return &Catalog{Root: root, Extensions: exts, Exclude: exclude, Logger: slog.Default()}
}

// Accepts reports whether name has an allowed extension.
func (c *Catalog) Accepts(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && c.Extensions.Has(ext)
}

// Excluded reports whether the slash-separated rel path lies in an excluded
// directory or a hidden directory.
func (c *Catalog) Excluded(rel string) bool {
	for _, ex := range c.Exclude {
		ex = strings.Trim(ex, "/")
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	for seg := range strings.SplitSeq(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

// Walk lazily yields every accepted file. A missing or unreadable root yields
// a single *TraversalError. Unreadable entries below the root yield an
// *EntryError and the walk continues. Symlinked directories are followed at
// most once per resolved target.
func (c *Catalog) Walk(ctx context.Context) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		root, err := filepath.Abs(c.Root)
		if err != nil {
			yield(File{}, &TraversalError{Root: c.Root, Err: err})
			return
		}
		info, err := os.Stat(root)
		if err != nil {
			yield(File{}, &TraversalError{Root: c.Root, Err: err})
			return
		}
		if !info.IsDir() {
			yield(File{}, &TraversalError{Root: c.Root, Err: fmt.Errorf("not a directory")})
			return
		}
		if _, err := os.ReadDir(root); err != nil {
			yield(File{}, &TraversalError{Root: c.Root, Err: err})
			return
		}

		w := &walker{c: c, ctx: ctx, yield: yield, visited: sets.New[string]()}
		real, err := filepath.EvalSymlinks(root)
		if err != nil {
			real = root
		}
		w.visited.Add(real)
		w.dir(root, "")
	}
}

type walker struct {
	c       *Catalog
	ctx     context.Context
	yield   func(File, error) bool
	visited sets.Set[string]
	stopped bool
}

func (w *walker) emit(f File, err error) {
	if w.stopped {
		return
	}
	if !w.yield(f, err) {
		w.stopped = true
	}
}

func (w *walker) dir(abs, rel string) {
	if w.stopped {
		return
	}
	if err := w.ctx.Err(); err != nil {
		w.emit(File{}, err)
		w.stopped = true
		return
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.emit(File{}, &EntryError{RelPath: rel, Err: err})
		return
	}
	for _, e := range entries {
		if w.stopped {
			return
		}
		childAbs := filepath.Join(abs, e.Name())
		childRel := path.Join(rel, e.Name())
		if w.c.Excluded(childRel) {
			continue
		}

		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(childAbs)
			if err != nil {
				w.c.Logger.Debug("Skipping dangling symlink", logfields.Asset(childRel), logfields.Error(err))
				continue
			}
			mode = target.Mode().Type()
			if target.IsDir() {
				real, err := filepath.EvalSymlinks(childAbs)
				if err != nil || w.visited.Has(real) {
					w.c.Logger.Debug("Skipping symlink cycle", logfields.Asset(childRel))
					continue
				}
				w.visited.Add(real)
				w.dir(childAbs, childRel)
				continue
			}
		}

		switch {
		case mode.IsDir():
			real, err := filepath.EvalSymlinks(childAbs)
			if err == nil {
				if w.visited.Has(real) {
					continue
				}
				w.visited.Add(real)
			}
			w.dir(childAbs, childRel)
		case mode.IsRegular():
			if !w.c.Accepts(e.Name()) {
				continue
			}
			f, err := Stat(childAbs, childRel)
			if err != nil {
				w.emit(File{}, &EntryError{RelPath: childRel, Err: err})
				continue
			}
			w.emit(f, nil)
		}
	}
}

// Stat builds a File for one path, computing its fingerprint.
func Stat(abs, rel string) (File, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, err
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("not a regular file")
	}
	fp, err := Fingerprint(abs)
	if err != nil {
		return File{}, err
	}
	return File{
		AbsPath:     abs,
		RelPath:     rel,
		Ext:         strings.ToLower(filepath.Ext(abs)),
		Size:        info.Size(),
		ModTime:     info.ModTime().UTC(),
		Fingerprint: fp,
	}, nil
}

// Fingerprint streams the file through SHA-256.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Collect drains Walk and returns the files in processing order together with
// the non-fatal entry errors. A TraversalError or context error is returned as
// the fatal error.
func (c *Catalog) Collect(ctx context.Context) ([]File, []error, error) {
	var (
		files   []File
		skipped []error
	)
	for f, err := range c.Walk(ctx) {
		if err != nil {
			var entry *EntryError
			if asEntry(err, &entry) {
				skipped = append(skipped, err)
				continue
			}
			return nil, skipped, err
		}
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b File) int { return asset.Compare(a.RelPath, b.RelPath) })
	return files, skipped, nil
}
