package projection

import (
	"math"

	"github.com/soniakeys/unit"

	"github.com/echoflaresat/spheresquash/view"
	"github.com/echoflaresat/spheresquash/vectors"
)

var (
	pitchAxis = vectors.Vec3{X: -1}
	yawAxis   = vectors.UnitY
)

// Rotate orients a camera-space ray into world space: first a pitch of
// phiN·90° (positive looks up), then a yaw of thetaN·180° (positive turns
// toward +X). The result is renormalized.
func Rotate(ray vectors.Vec3, thetaN, phiN float64) vectors.Vec3 {
	pitch := unit.AngleFromDeg(phiN * view.MaxPhi)
	yaw := unit.AngleFromDeg(thetaN * view.MaxTheta)

	ray = ray.Rotate(pitchAxis, pitch.Cos(), pitch.Sin())
	ray = ray.Rotate(yawAxis, yaw.Cos(), yaw.Sin())
	return ray.Normalize()
}

// Basis returns the world-space right, up and forward axes of a camera looking
// along (thetaN, phiN).
func Basis(thetaN, phiN float64) (right, up, forward vectors.Vec3) {
	return Rotate(vectors.UnitX, thetaN, phiN),
		Rotate(vectors.UnitY, thetaN, phiN),
		Rotate(vectors.UnitZ, thetaN, phiN)
}

// LonLat returns the longitude in [-π, π] and latitude in [-π/2, π/2] of a
// world-space unit vector.
func LonLat(dir vectors.Vec3) (lon, lat float64) {
	y := math.Max(-1, math.Min(1, dir.Y))
	return math.Atan2(dir.X, dir.Z), math.Asin(y)
}
