package render

import (
	"errors"
	"image"
	"math"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/spheresquash/colors"
	"github.com/echoflaresat/spheresquash/projection"
	"github.com/echoflaresat/spheresquash/vectors"
)

// ErrEmptySource is returned by NewSource for images without pixels.
var ErrEmptySource = errors.New("render: source image is empty")

// Source is an equirectangular panorama held as premultiplied RGBA8: the
// horizontal axis spans 360° of longitude, the vertical axis 180° of
// latitude with the north pole on the top row. A Source is never mutated
// after construction and may be shared by concurrent renders.
type Source struct {
	Width  int
	Height int
	pix    *image.RGBA
}

// NewSource copies img into a new Source. Rows are converted in parallel,
// so img must tolerate concurrent reads.
func NewSource(img image.Image) (*Source, error) {
	if img == nil {
		return nil, ErrEmptySource
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptySource
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	var g errgroup.Group
	for _, band := range rowBands(b.Dy(), runtime.GOMAXPROCS(0)) {
		g.Go(func() error {
			r := image.Rect(0, band[0], b.Dx(), band[1])
			draw.Draw(dst, r, img, b.Min.Add(r.Min), draw.Src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Source{Width: b.Dx(), Height: b.Dy(), pix: dst}, nil
}

// Downscale returns a copy no wider than maxWidth, keeping the 2:1 layout
// of the panorama. The receiver is returned when it is already small enough.
func (s *Source) Downscale(maxWidth int) *Source {
	if maxWidth <= 0 || s.Width <= maxWidth {
		return s
	}
	h := int(math.Round(float64(s.Height) * float64(maxWidth) / float64(s.Width)))
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), s.pix, s.pix.Bounds(), draw.Src, nil)
	return &Source{Width: maxWidth, Height: h, pix: dst}
}

// Sample returns the color seen along the world-space unit ray dir.
func (s *Source) Sample(dir vectors.Vec3) colors.Color4 {
	lon, lat := projection.LonLat(dir)
	sx := (lon/math.Pi + 1) / 2 * float64(s.Width)
	sy := (1 - lat/(math.Pi/2)) / 2 * float64(s.Height)
	return s.Bilinear(sx, sy)
}

// Bilinear interpolates between the four pixel centers around the continuous
// position (sx, sy); pixel (i, j) has its center at (i+0.5, j+0.5). The
// horizontal index wraps around the seam and the vertical index clamps at
// the poles.
func (s *Source) Bilinear(sx, sy float64) colors.Color4 {
	fx := sx - 0.5
	fy := sy - 0.5
	if math.IsNaN(fx) || math.IsNaN(fy) || math.IsInf(fx, 0) || math.IsInf(fy, 0) {
		return colors.Transparent()
	}

	x0f := math.Floor(fx)
	y0f := math.Floor(fy)
	tx := fx - x0f
	ty := fy - y0f

	x0 := wrap(x0f, s.Width)
	x1 := (x0 + 1) % s.Width
	y0 := clampIndex(y0f, s.Height)
	y1 := clampIndex(y0f+1, s.Height)

	top := s.at(x0, y0).Mix(s.at(x1, y0), tx)
	bottom := s.at(x0, y1).Mix(s.at(x1, y1), tx)
	return top.Mix(bottom, ty)
}

func (s *Source) at(x, y int) colors.Color4 {
	return colors.FromRGBA(s.pix.RGBAAt(x, y))
}

func wrap(i float64, n int) int {
	m := int(math.Mod(i, float64(n)))
	if m < 0 {
		m += n
	}
	return m
}

func clampIndex(i float64, n int) int {
	if i < 0 {
		return 0
	}
	if i > float64(n-1) {
		return n - 1
	}
	return int(i)
}

// rowBands splits height rows into at most n contiguous [start, end) bands.
func rowBands(height, n int) [][2]int {
	if n < 1 {
		n = 1
	}
	if n > height {
		n = height
	}
	bands := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		start := height * i / n
		end := height * (i + 1) / n
		if end > start {
			bands = append(bands, [2]int{start, end})
		}
	}
	return bands
}
