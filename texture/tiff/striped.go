package tiff

import (
	"fmt"
	"image/color"

	"golang.org/x/exp/mmap"
)

// Striped reads an uncompressed strip-organized TIFF. Pixels are addressed
// directly in the mapped file.
type Striped struct {
	mapped
	rowsPerStrip int
}

// OpenStriped maps path and validates that it is an uncompressed 8-bit
// grayscale or RGB TIFF stored in strips.
func OpenStriped(path string) (*Striped, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := newStriped(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return t, nil
}

func newStriped(reader *mmap.ReaderAt) (*Striped, error) {
	header, err := ParseHeader(reader)
	if err != nil {
		return nil, err
	}
	if len(header.StripOffsets) == 0 {
		return nil, fmt.Errorf("%w: no strip offsets", ErrLayoutMismatch)
	}
	if err := header.checkPixelFormat(CompressionNone); err != nil {
		return nil, err
	}

	rows := header.RowsPerStrip
	if rows <= 0 || rows > header.Height {
		rows = header.Height
	}
	strips := (header.Height + rows - 1) / rows
	if len(header.StripOffsets) < strips {
		return nil, fmt.Errorf("%w: %d strips for %d rows of %d", ErrInvalidTiffHeader, len(header.StripOffsets), header.Height, rows)
	}

	rowBytes := header.Width * header.SamplesPerPixel
	for i := 0; i < strips; i++ {
		n := rows
		if last := header.Height - i*rows; last < n {
			n = last
		}
		end := int64(header.StripOffsets[i]) + int64(n*rowBytes)
		if end > int64(reader.Len()) {
			return nil, fmt.Errorf("%w: strip %d ends past the file", ErrInvalidTiffHeader, i)
		}
	}

	return &Striped{
		mapped:       mapped{header: header, reader: reader},
		rowsPerStrip: rows,
	}, nil
}

func (t *Striped) At(x, y int) color.Color {
	return t.RGBAAt(x, y)
}

// RGBAAt returns the pixel at (x, y) without boxing it in an interface.
func (t *Striped) RGBAAt(x, y int) color.RGBA {
	if !t.inBounds(x, y) {
		return color.RGBA{}
	}
	h := t.header

	strip := y / t.rowsPerStrip
	localY := y % t.rowsPerStrip
	spp := h.SamplesPerPixel
	offset := int64(h.StripOffsets[strip]) + int64((localY*h.Width+x)*spp)

	var buf [3]byte
	if _, err := t.reader.ReadAt(buf[:spp], offset); err != nil {
		t.fail(fmt.Errorf("read pixel (%d,%d): %w", x, y, err))
		return color.RGBA{}
	}
	return t.rgba(buf[:spp])
}
