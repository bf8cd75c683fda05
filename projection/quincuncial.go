package projection

import (
	"math"
	"math/cmplx"

	"github.com/echoflaresat/spheresquash/elliptic"
	"github.com/echoflaresat/spheresquash/vectors"
)

// peirceM is the elliptic parameter of the Peirce projection (k = 1/√2).
const peirceM = 0.5

// peirceK is K(1/2); the square [-1,1]² is scaled by it so that the edge
// midpoints land on the equator and the corners on the back pole.
var peirceK = elliptic.K(peirceM)

// maxFolds bounds how many times a point outside the square is folded back.
const maxFolds = 64

// quincuncial inverts the Peirce quincuncial projection. The forward
// direction sits at the center of the square, the back pole at its four
// corners. Points outside the square are folded back in, which tiles the
// plane the way the projection naturally does.
func quincuncial(u, v, fovN float64) (vectors.Vec3, bool) {
	p, q, ok := foldPeirce(u*fovN, -v*fovN)
	if !ok {
		return vectors.Vec3{}, false
	}
	w := complex(peirceK*(1+p), peirceK*q)
	zeta := -elliptic.Cn(w, peirceM)
	if cmplx.IsInf(zeta) {
		return vectors.Vec3{Z: -1}, true
	}
	if cmplx.IsNaN(zeta) {
		return vectors.Vec3{}, false
	}
	return fromStereographic(real(zeta), imag(zeta))
}

// foldPeirce maps (p,q) into [-1,1]² by half-turns about the midpoint of the
// crossed edge. Each half-turn leaves cn unchanged since 4K and 2K+2iK are
// periods of cn(·|1/2) and cn is even.
func foldPeirce(p, q float64) (float64, float64, bool) {
	if math.IsNaN(p) || math.IsNaN(q) || math.IsInf(p, 0) || math.IsInf(q, 0) {
		return 0, 0, false
	}
	for i := 0; i < maxFolds; i++ {
		switch {
		case p > 1:
			p, q = 2-p, -q
		case p < -1:
			p, q = -2-p, -q
		case q > 1:
			p, q = -p, 2-q
		case q < -1:
			p, q = -p, -2-q
		default:
			return p, q, true
		}
	}
	return 0, 0, false
}
