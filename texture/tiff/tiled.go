package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/color"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/exp/mmap"
)

// tileCacheSize is the number of decoded tiles kept in memory.
const tileCacheSize = 256

// Tiled reads a tile-organized TIFF, uncompressed or deflate-compressed.
// Decoded tiles are kept in an LRU cache.
type Tiled struct {
	mapped
	tilesAcross int
	tileBytes   int
	cache       *lru.Cache // tile index -> []byte
}

// OpenTiled maps path and validates that it is an 8-bit grayscale or RGB
// TIFF stored in tiles.
func OpenTiled(path string) (*Tiled, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := newTiled(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return t, nil
}

func newTiled(reader *mmap.ReaderAt) (*Tiled, error) {
	header, err := ParseHeader(reader)
	if err != nil {
		return nil, err
	}
	if len(header.TileOffsets) == 0 {
		return nil, fmt.Errorf("%w: no tile offsets", ErrLayoutMismatch)
	}
	if err := header.checkPixelFormat(CompressionNone, CompressionDeflate, CompressionOldDeflate); err != nil {
		return nil, err
	}
	if header.TileWidth <= 0 || header.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: tile size %dx%d", ErrInvalidTiffHeader, header.TileWidth, header.TileHeight)
	}
	if len(header.TileOffsets) != len(header.TileByteCounts) {
		return nil, fmt.Errorf("%w: %d tile offsets, %d byte counts", ErrInvalidTiffHeader, len(header.TileOffsets), len(header.TileByteCounts))
	}

	across := (header.Width + header.TileWidth - 1) / header.TileWidth
	down := (header.Height + header.TileHeight - 1) / header.TileHeight
	if len(header.TileOffsets) < across*down {
		return nil, fmt.Errorf("%w: %d tiles, want %d", ErrInvalidTiffHeader, len(header.TileOffsets), across*down)
	}

	cache, err := lru.New(tileCacheSize)
	if err != nil {
		return nil, err
	}

	return &Tiled{
		mapped:      mapped{header: header, reader: reader},
		tilesAcross: across,
		tileBytes:   header.TileWidth * header.TileHeight * header.SamplesPerPixel,
		cache:       cache,
	}, nil
}

func (t *Tiled) At(x, y int) color.Color {
	return t.RGBAAt(x, y)
}

// RGBAAt returns the pixel at (x, y) without boxing it in an interface.
func (t *Tiled) RGBAAt(x, y int) color.RGBA {
	if !t.inBounds(x, y) {
		return color.RGBA{}
	}
	h := t.header

	tileIndex := (y/h.TileHeight)*t.tilesAcross + x/h.TileWidth

	var tile []byte
	if val, ok := t.cache.Get(tileIndex); ok {
		tile = val.([]byte)
	} else {
		var err error
		tile, err = t.loadTile(tileIndex)
		if err != nil {
			t.fail(err)
			return color.RGBA{}
		}
		t.cache.Add(tileIndex, tile)
	}

	localX := x % h.TileWidth
	localY := y % h.TileHeight
	spp := h.SamplesPerPixel
	pixOffset := (localY*h.TileWidth + localX) * spp
	return t.rgba(tile[pixOffset : pixOffset+spp])
}

func (t *Tiled) loadTile(index int) ([]byte, error) {
	h := t.header
	offset := int64(h.TileOffsets[index])
	byteCount := h.TileByteCounts[index]
	if byteCount <= 0 || offset+int64(byteCount) > int64(t.reader.Len()) {
		return nil, fmt.Errorf("tile %d: %d bytes at %d outside the file", index, byteCount, offset)
	}

	buf := make([]byte, byteCount)
	if _, err := t.reader.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read tile %d: %w", index, err)
	}

	if h.Compression != CompressionNone {
		r, err := zlib.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("inflate tile %d: %w", index, err)
		}
		defer r.Close()
		buf, err = io.ReadAll(io.LimitReader(r, int64(t.tileBytes)))
		if err != nil {
			return nil, fmt.Errorf("inflate tile %d: %w", index, err)
		}
	}

	if len(buf) < t.tileBytes {
		return nil, fmt.Errorf("tile %d: %d bytes, want %d", index, len(buf), t.tileBytes)
	}
	return buf, nil
}
