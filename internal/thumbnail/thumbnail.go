// Package thumbnail produces resized derivatives of source images.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/util/atomicfile"
)

// Supported source formats as reported by image.DecodeConfig.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Info describes a source image read by Inspect.
type Info struct {
	Width  int
	Height int
	Format string
}

// Engine writes thumbnails below ThumbsDir, mirroring the source layout.
type Engine struct {
	SiteRoot  string // public paths are relative to this directory
	AssetsDir string
	ThumbsDir string // absolute; normally <AssetsDir>/_thumbs
	Width     int
	Quality   int
	Logger    *slog.Logger
}

// Request asks for the thumbnail of one source file.
type Request struct {
	AbsPath     string
	RelPath     string // slash-separated, relative to AssetsDir
	Fingerprint string
	ModTime     time.Time
	// PreviousFingerprint is the source fingerprint the existing thumbnail was
	// generated from, as recorded in the build cache.
	PreviousFingerprint string
}

// Result is the outcome of Ensure.
type Result struct {
	Path      string // public slash path, e.g. assets/_thumbs/ui/ok-png-480.png
	AbsPath   string
	Source    Info
	Generated bool
}

// Inspect reads the image header only.
func Inspect(p string) (Info, error) {
	f, err := os.Open(p)
	if err != nil {
		return Info{}, &DecodeError{Path: p, Err: err}
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, &DecodeError{Path: p, Err: err}
	}
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
	default:
		return Info{}, &UnsupportedFormatError{Path: p, Format: format}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, &DecodeError{Path: p, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// OutputPath returns the deterministic thumbnail location for a source path.
func (e *Engine) OutputPath(rel, format string) string {
	dir, name := path.Split(rel)
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	base := strings.TrimSuffix(name, path.Ext(name))
	out := fmt.Sprintf("%s-%s-%d.%s", base, ext, e.Width, outputExt(format))
	return filepath.Join(e.ThumbsDir, filepath.FromSlash(dir), out)
}

// Ensure returns the thumbnail for req, generating it unless an up-to-date
// derivative already exists. A derivative is up to date when it exists, is
// not older than the source and was produced from the same fingerprint.
func (e *Engine) Ensure(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	info, err := Inspect(req.AbsPath)
	if err != nil {
		return Result{}, err
	}

	out := e.OutputPath(req.RelPath, info.Format)
	res := Result{Path: e.publicPath(out), AbsPath: out, Source: info}

	if e.fresh(out, req) {
		return res, nil
	}

	data, err := e.render(req.AbsPath, info.Format)
	if err != nil {
		return Result{}, err
	}
	if err := atomicfile.WriteFile(out, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write thumbnail %s: %w", out, err)
	}
	res.Generated = true
	e.logger().Debug("Generated thumbnail", logfields.Asset(req.RelPath), logfields.Path(res.Path))
	return res, nil
}

// Remove deletes a thumbnail by its public path. Missing files are not an
// error.
func (e *Engine) Remove(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	abs := filepath.Join(e.SiteRoot, filepath.FromSlash(publicPath))
	if !strings.HasPrefix(abs, filepath.Clean(e.ThumbsDir)+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside %s", abs, e.ThumbsDir)
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (e *Engine) fresh(out string, req Request) bool {
	if req.PreviousFingerprint == "" || req.PreviousFingerprint != req.Fingerprint {
		return false
	}
	st, err := os.Stat(out)
	if err != nil || !st.Mode().IsRegular() || st.Size() == 0 {
		return false
	}
	return !st.ModTime().Before(req.ModTime)
}

func (e *Engine) render(src, format string) ([]byte, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, &DecodeError{Path: src, Err: err}
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Path: src, Err: err}
	}

	sb := img.Bounds()
	w, h := TargetSize(sb.Dx(), sb.Dy(), e.Width)
	var buf bytes.Buffer
	if format == FormatJPEG {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: e.Quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// TargetSize scales (w, h) to maxWidth preserving aspect ratio. Images
// narrower than maxWidth keep their size.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth || maxWidth <= 0 {
		return w, h
	}
	nh := (h*maxWidth + w/2) / w
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

func (e *Engine) publicPath(abs string) string {
	rel, err := filepath.Rel(e.SiteRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func outputExt(format string) string {
	if format == FormatJPEG {
		return "jpg"
	}
	return "png"
}
