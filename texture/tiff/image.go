package tiff

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/exp/mmap"
)

// Image is a TIFF whose pixels are read from a memory-mapped file on demand.
// It is safe for concurrent use. A failed read yields a transparent pixel;
// the first such failure is kept and reported by Err.
type Image interface {
	image.Image
	Err() error
	Close() error
}

// mapped holds what the striped and tiled readers share.
type mapped struct {
	header Header
	reader *mmap.ReaderAt

	mu  sync.Mutex
	err error
}

func (m *mapped) ColorModel() color.Model {
	return color.RGBAModel
}

func (m *mapped) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.header.Width, m.header.Height)
}

// Header returns the parsed first directory.
func (m *mapped) Header() Header {
	return m.header
}

// Err returns the first pixel read failure, if any.
func (m *mapped) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close unmaps the file. The image must not be used afterwards.
func (m *mapped) Close() error {
	return m.reader.Close()
}

func (m *mapped) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
}

func (m *mapped) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.header.Width && y < m.header.Height
}

// rgba converts one pixel's samples.
func (m *mapped) rgba(samples []byte) color.RGBA {
	if m.header.Photometric == PhotometricBlackIsZero {
		v := samples[0]
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return color.RGBA{R: samples[0], G: samples[1], B: samples[2], A: 255}
}
