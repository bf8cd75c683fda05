// Package texture loads panoramas from disk and saves rendered frames.
package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG format with image.Decode
	_ "image/png"  // register PNG format with image.Decode
	"io"
	"os"

	tiffcodec "github.com/echoflaresat/tiff"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register BMP format with image.Decode
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP format with image.Decode

	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/texture/tiff"
)

// ErrDecode wraps every failure to read an image.
var ErrDecode = errors.New("decode image")

// Load reads the image at path. Uncompressed striped and tiled TIFFs are read
// through a memory map; other TIFFs go through the TIFF codec and the
// remaining formats (PNG, JPEG, BMP, WebP) through image.Decode.
func Load(path string) (image.Image, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return img, nil
}

func loadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	striped, err := tiff.OpenStriped(path)
	if err == nil {
		return materialize(striped)
	}
	logSkipped("striped TIFF", path, err)

	tiled, err := tiff.OpenTiled(path)
	if err == nil {
		return materialize(tiled)
	}
	logSkipped("tiled TIFF", path, err)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiffcodec.Decode(f)
	if err == nil {
		return img, nil
	}

	// fallback to image codecs
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	logger.Debug("decoded image", zap.String("path", path), zap.String("format", format))
	return img, nil
}

// materialize copies a memory-mapped TIFF into memory and unmaps the file.
func materialize(src tiff.Image) (image.Image, error) {
	defer src.Close()

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	if err := src.Err(); err != nil {
		return nil, err
	}
	return dst, nil
}

func logSkipped(reader, path string, err error) {
	if errors.Is(err, tiff.ErrInvalidTiffHeader) || errors.Is(err, tiff.ErrLayoutMismatch) || errors.Is(err, tiff.ErrUnsupported) {
		logger.Debug("reader skipped", zap.String("reader", reader), zap.String("path", path), zap.Error(err))
		return
	}
	logger.Warn("failed to load "+reader, zap.String("path", path), zap.Error(err))
}
