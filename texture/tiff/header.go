// Package tiff reads uncompressed and deflate-compressed baseline TIFF files
// through a memory map, fetching pixels on demand. Very large panoramas are
// usually stored this way, and decoding them fully through image.Decode would
// hold the compressed and decoded copies in memory at once.
package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidTiffHeader means the file is not a TIFF at all.
	ErrInvalidTiffHeader = errors.New("invalid TIFF header")
	// ErrLayoutMismatch means the file is a TIFF stored in the other layout
	// (strips instead of tiles or vice versa).
	ErrLayoutMismatch = errors.New("TIFF layout mismatch")
	// ErrUnsupported means the TIFF uses a compression, photometric
	// interpretation or sample format these readers do not handle.
	ErrUnsupported = errors.New("unsupported TIFF")
)

type Header struct {
	ByteOrder       binary.ByteOrder
	Width, Height   int
	SamplesPerPixel int
	BitsPerSample   []int
	Photometric     int
	Compression     int
	PlanarConfig    int

	// Strip layout
	RowsPerStrip    int
	StripOffsets    []int
	StripByteCounts []int

	// Tile layout
	TileWidth      int
	TileHeight     int
	TileOffsets    []int
	TileByteCounts []int
}

// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml
const (
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagStripOffsets              = 273
	TagSamplesPerPixel           = 277
	TagRowsPerStrip              = 278
	TagStripByteCounts           = 279
	TagPlanarConfiguration       = 284
	TagTileWidth                 = 322
	TagTileLength                = 323
	TagTileOffsets               = 324
	TagTileByteCounts            = 325
)

const (
	CompressionNone       = 1
	CompressionDeflate    = 8
	CompressionOldDeflate = 32946
)

const (
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
)

const planarChunky = 1

// field types
const (
	typeByte  = 1
	typeShort = 3
	typeLong  = 4
)

const maxEntries = 4096

// ParseHeader reads the first IFD of a TIFF file.
func ParseHeader(reader io.ReaderAt) (Header, error) {
	read := func(offset int64, size int) ([]byte, error) {
		buf := make([]byte, size)
		if _, err := reader.ReadAt(buf, offset); err != nil {
			return nil, fmt.Errorf("%w: read %d bytes at %d: %w", ErrInvalidTiffHeader, size, offset, err)
		}
		return buf, nil
	}

	header, err := read(0, 8)
	if err != nil {
		return Header{}, err
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return Header{}, ErrInvalidTiffHeader
	}
	if bo.Uint16(header[2:4]) != 42 {
		return Header{}, ErrInvalidTiffHeader
	}
	ifdOffset := int64(bo.Uint32(header[4:8]))

	entryCountRaw, err := read(ifdOffset, 2)
	if err != nil {
		return Header{}, err
	}
	numEntries := int(bo.Uint16(entryCountRaw))
	if numEntries == 0 || numEntries > maxEntries {
		return Header{}, fmt.Errorf("%w: %d directory entries", ErrInvalidTiffHeader, numEntries)
	}
	entriesRaw, err := read(ifdOffset+2, numEntries*12)
	if err != nil {
		return Header{}, err
	}

	hdr := Header{
		ByteOrder:       bo,
		SamplesPerPixel: 1,
		Photometric:     -1,
		Compression:     CompressionNone,
		PlanarConfig:    planarChunky,
	}

	for i := 0; i < numEntries; i++ {
		entry := entriesRaw[i*12 : (i+1)*12]
		tag := bo.Uint16(entry[0:2])

		values, err := readValues(bo, entry, read)
		if err != nil {
			return Header{}, fmt.Errorf("tag %d: %w", tag, err)
		}
		if values == nil {
			continue // a field type none of the tags below use
		}
		first := values[0]

		switch tag {
		case TagImageWidth:
			hdr.Width = first
		case TagImageLength:
			hdr.Height = first
		case TagBitsPerSample:
			hdr.BitsPerSample = values
		case TagCompression:
			hdr.Compression = first
		case TagPhotometricInterpretation:
			hdr.Photometric = first
		case TagStripOffsets:
			hdr.StripOffsets = values
		case TagSamplesPerPixel:
			hdr.SamplesPerPixel = first
		case TagRowsPerStrip:
			hdr.RowsPerStrip = first
		case TagStripByteCounts:
			hdr.StripByteCounts = values
		case TagPlanarConfiguration:
			hdr.PlanarConfig = first
		case TagTileWidth:
			hdr.TileWidth = first
		case TagTileLength:
			hdr.TileHeight = first
		case TagTileOffsets:
			hdr.TileOffsets = values
		case TagTileByteCounts:
			hdr.TileByteCounts = values
		}
	}

	if hdr.Width <= 0 || hdr.Height <= 0 {
		return Header{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidTiffHeader, hdr.Width, hdr.Height)
	}
	if len(hdr.BitsPerSample) == 0 {
		hdr.BitsPerSample = []int{1}
	}
	return hdr, nil
}

// readValues decodes the values of one IFD entry. Values that fit in four
// bytes are stored in the entry itself, left-justified.
func readValues(bo binary.ByteOrder, entry []byte, read func(int64, int) ([]byte, error)) ([]int, error) {
	typ := bo.Uint16(entry[2:4])
	count := int(bo.Uint32(entry[4:8]))

	var size int
	switch typ {
	case typeByte:
		size = 1
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		return nil, nil
	}
	if count <= 0 || count > 1<<24 {
		return nil, fmt.Errorf("%w: value count %d", ErrInvalidTiffHeader, count)
	}

	raw := entry[8:12]
	if count*size > 4 {
		buf, err := read(int64(bo.Uint32(entry[8:12])), count*size)
		if err != nil {
			return nil, err
		}
		raw = buf
	}

	out := make([]int, count)
	for i := range out {
		switch size {
		case 1:
			out[i] = int(raw[i])
		case 2:
			out[i] = int(bo.Uint16(raw[i*2:]))
		case 4:
			out[i] = int(bo.Uint32(raw[i*4:]))
		}
	}
	return out, nil
}

// checkPixelFormat accepts 8-bit chunky grayscale and RGB with the given
// compressions.
func (h Header) checkPixelFormat(compressions ...int) error {
	ok := false
	for _, c := range compressions {
		if h.Compression == c {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("%w: compression %d", ErrUnsupported, h.Compression)
	}
	if h.PlanarConfig != planarChunky {
		return fmt.Errorf("%w: planar configuration %d", ErrUnsupported, h.PlanarConfig)
	}
	for _, b := range h.BitsPerSample {
		if b != 8 {
			return fmt.Errorf("%w: %v bits per sample", ErrUnsupported, h.BitsPerSample)
		}
	}
	switch h.Photometric {
	case PhotometricBlackIsZero:
		if h.SamplesPerPixel != 1 {
			return fmt.Errorf("%w: grayscale with %d samples", ErrUnsupported, h.SamplesPerPixel)
		}
	case PhotometricRGB:
		if h.SamplesPerPixel != 3 {
			return fmt.Errorf("%w: RGB with %d samples", ErrUnsupported, h.SamplesPerPixel)
		}
	default:
		return fmt.Errorf("%w: photometric interpretation %d", ErrUnsupported, h.Photometric)
	}
	return nil
}
