package thumbnail

import "fmt"

// UnsupportedFormatError reports an image Go can decode but the pipeline does
// not publish (gif, bmp, tiff). The asset is skipped.
type UnsupportedFormatError struct {
	Path   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported image format %q: %s", e.Format, e.Path)
}

// DecodeError reports an unreadable or corrupt image. The asset is skipped.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
