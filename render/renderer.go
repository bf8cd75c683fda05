// Package render reprojects an equirectangular panorama into a destination
// frame of the same size under one of the view modes.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/spheresquash/colors"
	"github.com/echoflaresat/spheresquash/view"
)

var (
	// ErrNoSource reports that there is nothing to render. Callers keep
	// showing their previous frame.
	ErrNoSource = errors.New("render: no source image")

	// ErrCancelled wraps the context error of an abandoned render.
	ErrCancelled = errors.New("render: cancelled")
)

// bandsPerWorker oversplits the frame so that fast bands do not leave
// workers idle at the end of a render.
const bandsPerWorker = 4

// Options tune how a frame is computed. The zero value is usable.
type Options struct {
	// Workers bounds the number of concurrent row bands; <= 0 uses
	// GOMAXPROCS.
	Workers int
	// Supersample takes n×n samples per pixel; <= 1 takes one sample at the
	// pixel center.
	Supersample int
	// KeepAspect keeps square pixels in the non-equirectangular modes.
	KeepAspect bool
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) supersample() int {
	if o.Supersample < 1 {
		return 1
	}
	return o.Supersample
}

// Render reprojects src under p. The result has the size of src and every
// pixel is written once; pixels without a ray are fully transparent. Equal
// inputs give byte-identical output. A cancelled ctx abandons the frame and
// returns an error wrapping ErrCancelled.
func Render(ctx context.Context, src *Source, p view.Params, opts Options) (*image.RGBA, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	cam := NewCamera(view.Normalize(p), src.Width, src.Height, opts.KeepAspect)
	offsets := GenerateSupersamplingOffsets(opts.supersample())
	dst := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))

	workers := opts.workers()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, band := range rowBands(src.Height, workers*bandsPerWorker) {
		g.Go(func() error {
			for y := band[0]; y < band[1]; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				renderRow(dst, src, cam, offsets, y)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return dst, nil
}

func renderRow(dst *image.RGBA, src *Source, cam Camera, offsets [][2]float64, y int) {
	inv := 1.0 / float64(len(offsets))
	for x := 0; x < src.Width; x++ {
		acc := colors.Transparent()
		for _, off := range offsets {
			dir, ok := cam.ComputeRay(float64(x)+0.5+off[0], float64(y)+0.5+off[1])
			if !ok {
				continue
			}
			acc = acc.Add(src.Sample(dir))
		}
		if len(offsets) > 1 {
			acc = acc.Scale(inv)
		}
		dst.SetRGBA(x, y, acc.ToRGBA())
	}
}

// GenerateSupersamplingOffsets returns n×n offsets in [-0.5, +0.5] for
// supersampling, as pairs (dx, dy) with pixel-center spacing.
func GenerateSupersamplingOffsets(n int) [][2]float64 {
	if n <= 0 {
		return nil
	}
	step := 1.0 / float64(n)
	out := make([][2]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx := (float64(i)+0.5)*step - 0.5
			dy := (float64(j)+0.5)*step - 0.5
			out = append(out, [2]float64{dx, dy})
		}
	}
	return out
}
