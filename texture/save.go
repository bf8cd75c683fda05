package texture

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xtiff "golang.org/x/image/tiff"
)

// DefaultOutput is the file name used when no output path is given.
const DefaultOutput = "panorama.jpg"

// DefaultJPEGQuality is used when the caller passes a quality outside 1..100.
const DefaultJPEGQuality = 90

var (
	// ErrEncode wraps every failure to write an image.
	ErrEncode = errors.New("encode image")
	// ErrUnsupportedFormat is returned for output paths whose extension has
	// no encoder.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
)

// FormatFor picks the encoder from the extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".tif", ".tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Save writes img to path in the format named by its extension. quality only
// applies to JPEG. A partially written file is removed.
func Save(path string, img image.Image, quality int) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	err = encode(f, img, format, quality)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: %s: %w", ErrEncode, path, err)
	}
	return nil
}

func encode(f *os.File, img image.Image, format Format, quality int) error {
	switch format {
	case PNG:
		return (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(f, img)
	case JPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	case TIFF:
		return xtiff.Encode(f, img, &xtiff.Options{Compression: xtiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
