package view

import (
	"math"

	"github.com/soniakeys/unit"
)

// Accepted input ranges, in degrees.
const (
	MaxTheta = 180.0
	MaxPhi   = 90.0
	MaxFOV   = 180.0
)

// Params is the user-facing parameter tuple, angles in degrees.
type Params struct {
	Mode  Mode
	Theta float64 // azimuth, cyclic
	Phi   float64 // elevation, [-90, 90]
	FOV   float64 // (0, 180]
}

// Normalized carries the parameters in the units the engine consumes:
// Theta in [-1,1), Phi in [-1,1], FOV in (0,1].
type Normalized struct {
	Mode  Mode
	Theta float64
	Phi   float64
	FOV   float64
}

// Normalize converts degrees into engine units. Theta is wrapped, phi and fov
// are clamped; a non-positive fov becomes the smallest positive value rather
// than reaching a division downstream.
func Normalize(p Params) Normalized {
	fov := ClampFOV(p.FOV) / MaxFOV
	if fov <= 0 {
		// the division underflows for the smallest clamped degree value
		fov = math.SmallestNonzeroFloat64
	}
	return Normalized{
		Mode:  p.Mode,
		Theta: WrapTheta(p.Theta) / MaxTheta,
		Phi:   ClampPhi(p.Phi) / MaxPhi,
		FOV:   fov,
	}
}

// WrapTheta maps an azimuth in degrees into [-180, 180). The modulo is taken
// in degrees so that equivalent inputs (200 and -160) produce identical bits.
func WrapTheta(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	return unit.PMod(deg+MaxTheta, 2*MaxTheta) - MaxTheta
}

// ClampPhi limits an elevation in degrees to [-90, 90].
func ClampPhi(deg float64) float64 {
	switch {
	case math.IsNaN(deg):
		return 0
	case deg > MaxPhi:
		return MaxPhi
	case deg < -MaxPhi:
		return -MaxPhi
	}
	return deg
}

// ClampFOV limits a field of view in degrees to (0, 180].
func ClampFOV(deg float64) float64 {
	if !(deg > 0) {
		return math.SmallestNonzeroFloat64
	}
	if deg > MaxFOV {
		return MaxFOV
	}
	return deg
}
