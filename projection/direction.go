// Package projection maps destination pixels to viewing rays.
//
// Camera space is right-handed with +X to the right, +Y up and +Z forward.
// Destination coordinates (u, v) span [-1, 1] across the frame, u growing to
// the right and v growing downward.
package projection

import (
	"math"

	"github.com/echoflaresat/spheresquash/view"
	"github.com/echoflaresat/spheresquash/vectors"
)

// MaxPerspectiveHalfAngle bounds the pinhole half-angle below 90°, where the
// tangent diverges. A 180° perspective request renders at this limit.
const MaxPerspectiveHalfAngle = 89.9 * math.Pi / 180.0

// Direction returns the camera-space unit ray for the destination point (u,v)
// under mode with normalized field of view fovN. The boolean is false when
// the point has no ray; such pixels must not be sampled.
func Direction(mode view.Mode, u, v, fovN float64) (vectors.Vec3, bool) {
	switch mode {
	case view.Equirectangular:
		return equirectangular(u, v, fovN)
	case view.Stereographic:
		return stereographic(u, v, fovN)
	case view.Perspective:
		return perspective(u, v, fovN)
	case view.Quincuncial:
		return quincuncial(u, v, fovN)
	}
	return vectors.Vec3{}, false
}

// HalfAngle returns the half field of view in radians.
func HalfAngle(fovN float64) float64 {
	return fovN * math.Pi / 2
}

// equirectangular treats fov as a crop factor on longitude and latitude.
func equirectangular(u, v, fovN float64) (vectors.Vec3, bool) {
	lon := u * math.Pi * fovN
	lat := -v * (math.Pi / 2) * fovN
	return FromLonLat(lon, lat), true
}

// stereographic scales the plane so that the unit radius lands on the
// half-angle, then lifts the point back onto the sphere.
func stereographic(u, v, fovN float64) (vectors.Vec3, bool) {
	scale := math.Tan(HalfAngle(fovN) / 2)
	return fromStereographic(u*scale, -v*scale)
}

func perspective(u, v, fovN float64) (vectors.Vec3, bool) {
	half := math.Min(HalfAngle(fovN), MaxPerspectiveHalfAngle)
	tanHalf := math.Tan(half)
	dir := vectors.Vec3{X: u * tanHalf, Y: -v * tanHalf, Z: 1}.Normalize()
	return dir, dir.IsFinite()
}

// FromLonLat returns the unit vector at longitude lon and latitude lat
// (radians), longitude measured from +Z toward +X.
func FromLonLat(lon, lat float64) vectors.Vec3 {
	sinLon, cosLon := math.Sincos(lon)
	sinLat, cosLat := math.Sincos(lat)
	return vectors.Vec3{X: cosLat * sinLon, Y: sinLat, Z: cosLat * cosLon}
}

// fromStereographic is the inverse stereographic projection from the plane
// tangent at +Z, with the projection center at -Z: the point at radius r
// lies at colatitude 2·atan(r).
func fromStereographic(a, b float64) (vectors.Vec3, bool) {
	r2 := a*a + b*b
	if math.IsNaN(r2) {
		return vectors.Vec3{}, false
	}
	if math.IsInf(r2, 0) {
		return vectors.Vec3{Z: -1}, true
	}
	d := 1 + r2
	return vectors.Vec3{X: 2 * a / d, Y: 2 * b / d, Z: (1 - r2) / d}, true
}
