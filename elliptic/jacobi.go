// Package elliptic evaluates the Jacobi elliptic functions for real and
// complex arguments, as needed by the Peirce quincuncial projection.
//
// The parameter m is the square of the modulus k (m = k²), 0 <= m <= 1.
package elliptic

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mathext"
)

const machEp = 1.11022302462515654042e-16

// K returns the complete elliptic integral of the first kind K(m).
func K(m float64) float64 {
	return mathext.EllipticF(math.Pi/2, m)
}

// Jacobi returns sn(u|m), cn(u|m), dn(u|m) and the amplitude am(u|m) for real
// u, using the arithmetic-geometric mean with descending Landen steps.
// Outside 0 <= m <= 1 every result is NaN.
func Jacobi(u, m float64) (sn, cn, dn, ph float64) {
	if m < 0 || m > 1 || math.IsNaN(m) {
		nan := math.NaN()
		return nan, nan, nan, nan
	}

	if m < 1e-9 {
		t, b := math.Sincos(u)
		ai := 0.25 * m * (u - t*b)
		sn = t - ai*b
		cn = b + ai*t
		ph = u - ai
		dn = 1.0 - 0.5*m*t*t
		return sn, cn, dn, ph
	}

	if m >= 0.9999999999 {
		ai := 0.25 * (1.0 - m)
		b := math.Cosh(u)
		t := math.Tanh(u)
		phi := 1.0 / b
		twon := b * math.Sinh(u)
		sn = t + ai*(twon-u)/(b*b)
		ph = 2.0*math.Atan(math.Exp(u)) - math.Pi/2 + ai*(twon-u)/b
		ai *= t * phi
		cn = phi - ai*(twon-u)
		dn = phi + ai*(twon+u)
		return sn, cn, dn, ph
	}

	var a, c [9]float64
	a[0] = 1.0
	b := math.Sqrt(1.0 - m)
	c[0] = math.Sqrt(m)
	twon := 1.0
	i := 0

	for math.Abs(c[i]/a[i]) > machEp {
		if i == len(a)-1 {
			break
		}
		ai := a[i]
		i++
		c[i] = (ai - b) / 2.0
		t := math.Sqrt(ai * b)
		a[i] = (ai + b) / 2.0
		b = t
		twon *= 2.0
	}

	// backward recurrence
	phi := twon * a[i] * u
	for ; i > 0; i-- {
		t := c[i] * math.Sin(phi) / a[i]
		phi = (math.Asin(t) + phi) / 2.0
	}

	sn, cn = math.Sincos(phi)
	// dn >= sqrt(1-m) > 0 here; the ratio form cn/cos(phi-b) is 0/0 at u = K.
	dn = math.Sqrt(1.0 - m*sn*sn)
	return sn, cn, dn, phi
}

// Cn returns cn(w|m) for complex w. At the poles of cn the result is
// complex infinity.
func Cn(w complex128, m float64) complex128 {
	s, c, d, _ := Jacobi(real(w), m)
	s1, c1, d1, _ := Jacobi(imag(w), 1-m)

	den := c1*c1 + m*s*s*s1*s1
	if den == 0 {
		return cmplx.Inf()
	}
	return complex(c*c1/den, -s*d*s1*d1/den)
}
