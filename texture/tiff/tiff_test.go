package tiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

type layout struct {
	order        binary.ByteOrder
	gray         bool
	compression  int
	rowsPerStrip int // strips when > 0
	tileW, tileH int // tiles when > 0
}

type field struct {
	tag  uint16
	typ  uint16
	vals []int
}

func pixelAt(x, y int) color.RGBA {
	return color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: uint8(x*y + 7), A: 255}
}

func samples(l layout, x, y int) []byte {
	c := pixelAt(x, y)
	if l.gray {
		return []byte{c.R}
	}
	return []byte{c.R, c.G, c.B}
}

func compress(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildTIFF encodes a w×h image of pixelAt as a single-IFD TIFF.
func buildTIFF(t *testing.T, w, h int, l layout) []byte {
	t.Helper()
	bo := l.order
	var out bytes.Buffer
	out.Write(make([]byte, 8))

	var blocks [][]byte
	switch {
	case l.rowsPerStrip > 0:
		for y0 := 0; y0 < h; y0 += l.rowsPerStrip {
			var strip []byte
			for y := y0; y < y0+l.rowsPerStrip && y < h; y++ {
				for x := 0; x < w; x++ {
					strip = append(strip, samples(l, x, y)...)
				}
			}
			blocks = append(blocks, strip)
		}
	case l.tileW > 0:
		spp := 3
		if l.gray {
			spp = 1
		}
		for ty := 0; ty < h; ty += l.tileH {
			for tx := 0; tx < w; tx += l.tileW {
				tile := make([]byte, 0, l.tileW*l.tileH*spp)
				for y := ty; y < ty+l.tileH; y++ {
					for x := tx; x < tx+l.tileW; x++ {
						if x < w && y < h {
							tile = append(tile, samples(l, x, y)...)
						} else {
							tile = append(tile, make([]byte, spp)...)
						}
					}
				}
				if l.compression != CompressionNone {
					tile = compress(t, tile)
				}
				blocks = append(blocks, tile)
			}
		}
	}

	var offsets, counts []int
	for _, b := range blocks {
		offsets = append(offsets, out.Len())
		counts = append(counts, len(b))
		out.Write(b)
	}

	fields := []field{
		{TagImageWidth, typeLong, []int{w}},
		{TagImageLength, typeShort, []int{h}},
		{TagCompression, typeShort, []int{l.compression}},
	}
	if l.gray {
		fields = append(fields,
			field{TagBitsPerSample, typeShort, []int{8}},
			field{TagPhotometricInterpretation, typeShort, []int{PhotometricBlackIsZero}},
			field{TagSamplesPerPixel, typeShort, []int{1}})
	} else {
		fields = append(fields,
			field{TagBitsPerSample, typeShort, []int{8, 8, 8}},
			field{TagPhotometricInterpretation, typeShort, []int{PhotometricRGB}},
			field{TagSamplesPerPixel, typeShort, []int{3}})
	}
	if l.rowsPerStrip > 0 {
		fields = append(fields,
			field{TagStripOffsets, typeLong, offsets},
			field{TagRowsPerStrip, typeShort, []int{l.rowsPerStrip}},
			field{TagStripByteCounts, typeLong, counts})
	} else {
		fields = append(fields,
			field{TagTileWidth, typeShort, []int{l.tileW}},
			field{TagTileLength, typeShort, []int{l.tileH}},
			field{TagTileOffsets, typeLong, offsets},
			field{TagTileByteCounts, typeLong, counts})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	size := func(typ uint16) int {
		if typ == typeShort {
			return 2
		}
		return 4
	}
	put := func(dst []byte, typ uint16, v int) {
		if typ == typeShort {
			bo.PutUint16(dst, uint16(v))
		} else {
			bo.PutUint32(dst, uint32(v))
		}
	}

	// out-of-line values
	external := map[uint16]int{}
	for _, f := range fields {
		if len(f.vals)*size(f.typ) <= 4 {
			continue
		}
		if out.Len()%2 == 1 {
			out.WriteByte(0)
		}
		external[f.tag] = out.Len()
		buf := make([]byte, len(f.vals)*size(f.typ))
		for i, v := range f.vals {
			put(buf[i*size(f.typ):], f.typ, v)
		}
		out.Write(buf)
	}

	if out.Len()%2 == 1 {
		out.WriteByte(0)
	}
	ifd := out.Len()
	dir := make([]byte, 2+12*len(fields)+4)
	bo.PutUint16(dir, uint16(len(fields)))
	for i, f := range fields {
		e := dir[2+12*i:]
		bo.PutUint16(e[0:], f.tag)
		bo.PutUint16(e[2:], f.typ)
		bo.PutUint32(e[4:], uint32(len(f.vals)))
		if off, ok := external[f.tag]; ok {
			bo.PutUint32(e[8:], uint32(off))
			continue
		}
		for j, v := range f.vals {
			put(e[8+j*size(f.typ):], f.typ, v)
		}
	}
	out.Write(dir)

	data := out.Bytes()
	if bo == binary.BigEndian {
		copy(data, "MM")
	} else {
		copy(data, "II")
	}
	bo.PutUint16(data[2:], 42)
	bo.PutUint32(data[4:], uint32(ifd))
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func checkPixels(t *testing.T, img Image, w, h int, gray bool) {
	t.Helper()
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("bounds = %v, want %dx%d", b, w, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := pixelAt(x, y)
			if gray {
				want = color.RGBA{R: want.R, G: want.R, B: want.R, A: 255}
			}
			if got := img.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
	if err := img.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestStripedReader(t *testing.T) {
	cases := []struct {
		name string
		l    layout
	}{
		{"rgb little endian", layout{order: binary.LittleEndian, compression: CompressionNone, rowsPerStrip: 3}},
		{"rgb big endian", layout{order: binary.BigEndian, compression: CompressionNone, rowsPerStrip: 2}},
		{"gray single strip", layout{order: binary.BigEndian, gray: true, compression: CompressionNone, rowsPerStrip: 7}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeFile(t, "striped.tif", buildTIFF(t, 10, 7, c.l))
			img, err := OpenStriped(path)
			if err != nil {
				t.Fatalf("OpenStriped: %v", err)
			}
			defer img.Close()
			checkPixels(t, img, 10, 7, c.l.gray)

			if got := img.At(-1, 0); got != (color.RGBA{}) {
				t.Errorf("out of bounds pixel = %v", got)
			}
		})
	}
}

func TestTiledReader(t *testing.T) {
	cases := []struct {
		name string
		l    layout
	}{
		{"uncompressed", layout{order: binary.LittleEndian, compression: CompressionNone, tileW: 4, tileH: 4}},
		{"deflate", layout{order: binary.LittleEndian, compression: CompressionDeflate, tileW: 4, tileH: 2}},
		{"gray big endian", layout{order: binary.BigEndian, gray: true, compression: CompressionOldDeflate, tileW: 8, tileH: 8}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeFile(t, "tiled.tif", buildTIFF(t, 10, 7, c.l))
			img, err := OpenTiled(path)
			if err != nil {
				t.Fatalf("OpenTiled: %v", err)
			}
			defer img.Close()
			checkPixels(t, img, 10, 7, c.l.gray)
			// second pass comes from the tile cache
			checkPixels(t, img, 10, 7, c.l.gray)
		})
	}
}

func TestLayoutMismatch(t *testing.T) {
	striped := writeFile(t, "s.tif", buildTIFF(t, 6, 4, layout{order: binary.LittleEndian, compression: CompressionNone, rowsPerStrip: 2}))
	tiled := writeFile(t, "t.tif", buildTIFF(t, 6, 4, layout{order: binary.LittleEndian, compression: CompressionNone, tileW: 4, tileH: 4}))

	if _, err := OpenTiled(striped); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("OpenTiled(striped) err = %v, want ErrLayoutMismatch", err)
	}
	if _, err := OpenStriped(tiled); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("OpenStriped(tiled) err = %v, want ErrLayoutMismatch", err)
	}
}

func TestRejectsNonTIFF(t *testing.T) {
	path := writeFile(t, "x.png", []byte("\x89PNG\r\n\x1a\n0000000000000000"))
	if _, err := OpenStriped(path); !errors.Is(err, ErrInvalidTiffHeader) {
		t.Errorf("err = %v, want ErrInvalidTiffHeader", err)
	}
	empty := writeFile(t, "empty.tif", nil)
	if _, err := OpenTiled(empty); !errors.Is(err, ErrInvalidTiffHeader) {
		t.Errorf("empty file err = %v, want ErrInvalidTiffHeader", err)
	}
}

func TestRejectsUnsupportedCompression(t *testing.T) {
	const lzw = 5
	data := buildTIFF(t, 6, 4, layout{order: binary.LittleEndian, compression: lzw, rowsPerStrip: 4})
	path := writeFile(t, "lzw.tif", data)
	if _, err := OpenStriped(path); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestRejectsTruncatedStrips(t *testing.T) {
	data := buildTIFF(t, 6, 4, layout{order: binary.LittleEndian, compression: CompressionNone, rowsPerStrip: 4})
	// Shift the IFD-relative strip offset past the end of the file.
	hdr, err := ParseHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if hdr.StripOffsets[0] != 8 {
		t.Fatalf("strip offset = %d, want 8", hdr.StripOffsets[0])
	}
	idx := bytes.Index(data, []byte{0x11, 0x01, 0x04, 0x00}) // StripOffsets, LONG
	if idx < 0 {
		t.Fatal("strip offsets entry not found")
	}
	binary.LittleEndian.PutUint32(data[idx+8:], uint32(len(data)))

	path := writeFile(t, "short.tif", data)
	if _, err := OpenStriped(path); !errors.Is(err, ErrInvalidTiffHeader) {
		t.Errorf("err = %v, want ErrInvalidTiffHeader", err)
	}
}

func TestCorruptTileIsRecorded(t *testing.T) {
	l := layout{order: binary.LittleEndian, compression: CompressionDeflate, tileW: 8, tileH: 8}
	data := buildTIFF(t, 8, 8, l)
	hdr, err := ParseHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	// Overwrite the zlib stream header.
	data[hdr.TileOffsets[0]] = 0xff
	data[hdr.TileOffsets[0]+1] = 0xff

	img, err := OpenTiled(writeFile(t, "bad.tif", data))
	if err != nil {
		t.Fatalf("OpenTiled: %v", err)
	}
	defer img.Close()

	if got := img.At(1, 1); got != (color.RGBA{}) {
		t.Errorf("corrupt pixel = %v, want transparent", got)
	}
	if img.Err() == nil {
		t.Error("tile failure not recorded")
	}
}

func TestParseHeaderFields(t *testing.T) {
	data := buildTIFF(t, 300, 5, layout{order: binary.BigEndian, compression: CompressionNone, rowsPerStrip: 2})
	hdr, err := ParseHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Width != 300 || hdr.Height != 5 || hdr.RowsPerStrip != 2 {
		t.Errorf("header = %+v", hdr)
	}
	if len(hdr.BitsPerSample) != 3 || hdr.SamplesPerPixel != 3 || hdr.Photometric != PhotometricRGB {
		t.Errorf("pixel format = %v/%d/%d", hdr.BitsPerSample, hdr.SamplesPerPixel, hdr.Photometric)
	}
	if len(hdr.StripOffsets) != 3 || len(hdr.StripByteCounts) != 3 {
		t.Errorf("strips = %v / %v", hdr.StripOffsets, hdr.StripByteCounts)
	}
}
