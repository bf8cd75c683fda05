package render

import (
	"github.com/echoflaresat/spheresquash/projection"
	"github.com/echoflaresat/spheresquash/vectors"
	"github.com/echoflaresat/spheresquash/view"
)

// Camera turns destination pixel positions into world-space rays for one
// frame. The basis is the world axes rotated by the view direction.
type Camera struct {
	Mode    view.Mode
	FOV     float64 // normalized, (0, 1]
	Width   int
	Height  int
	Forward vectors.Vec3
	Right   vectors.Vec3
	Up      vectors.Vec3

	// scaleU and scaleV stretch the unit square over the longer frame axis
	// when the aspect ratio is kept.
	scaleU float64
	scaleV float64
}

// NewCamera builds the camera for a width×height frame. With keepAspect the
// non-equirectangular modes keep square pixels by extending the longer axis
// beyond [-1, 1].
func NewCamera(n view.Normalized, width, height int, keepAspect bool) Camera {
	right, up, fwd := projection.Basis(n.Theta, n.Phi)
	c := Camera{
		Mode:    n.Mode,
		FOV:     n.FOV,
		Width:   width,
		Height:  height,
		Forward: fwd,
		Right:   right,
		Up:      up,
		scaleU:  1,
		scaleV:  1,
	}
	if keepAspect && n.Mode != view.Equirectangular && width > 0 && height > 0 {
		aspect := float64(width) / float64(height)
		if aspect > 1 {
			c.scaleU = aspect
		} else {
			c.scaleV = 1 / aspect
		}
	}
	return c
}

// ComputeRay returns the world-space viewing direction through the continuous
// pixel position (px, py); the center of pixel (x, y) is (x+0.5, y+0.5). The
// boolean is false where the projection has no ray.
func (c Camera) ComputeRay(px, py float64) (vectors.Vec3, bool) {
	u := (2*px/float64(c.Width) - 1) * c.scaleU
	v := (2*py/float64(c.Height) - 1) * c.scaleV

	d, ok := projection.Direction(c.Mode, u, v, c.FOV)
	if !ok {
		return vectors.Vec3{}, false
	}

	dir := c.Right.Scale(d.X).
		Add(c.Up.Scale(d.Y)).
		Add(c.Forward.Scale(d.Z))
	if !dir.IsFinite() {
		return vectors.Vec3{}, false
	}
	return dir.Normalize(), true
}
