package projection

import (
	"math"
	"testing"

	"github.com/echoflaresat/spheresquash/view"
	"github.com/echoflaresat/spheresquash/vectors"
)

const eps = 1e-9

func near(a, b vectors.Vec3) bool {
	return vectors.Distance(a, b) < eps
}

func TestCenterLooksForward(t *testing.T) {
	for _, m := range view.Modes {
		dir, ok := Direction(m, 0, 0, 1)
		if !ok || !near(dir, vectors.UnitZ) {
			t.Errorf("%v: center = %+v (ok=%v), want +Z", m, dir, ok)
		}
	}
}

func TestDirectionsAreUnit(t *testing.T) {
	for _, m := range view.Modes {
		for _, fov := range []float64{0.1, 0.5, 1} {
			for u := -1.0; u <= 1.0; u += 0.125 {
				for v := -1.0; v <= 1.0; v += 0.125 {
					dir, ok := Direction(m, u, v, fov)
					if !ok {
						continue
					}
					if math.Abs(dir.Norm()-1) > eps {
						t.Fatalf("%v fov=%v (%v,%v): |dir| = %v", m, fov, u, v, dir.Norm())
					}
				}
			}
		}
	}
}

func TestInvalidModeHasNoRay(t *testing.T) {
	if _, ok := Direction(view.Mode(9), 0, 0, 1); ok {
		t.Error("invalid mode produced a ray")
	}
}

func TestEquirectangularAxes(t *testing.T) {
	cases := []struct {
		u, v float64
		want vectors.Vec3
	}{
		{0.5, 0, vectors.UnitX},
		{-0.5, 0, vectors.Vec3{X: -1}},
		{1, 0, vectors.Vec3{Z: -1}},
		{0, -1, vectors.UnitY},
		{0, 1, vectors.Vec3{Y: -1}},
	}
	for _, c := range cases {
		dir, _ := Direction(view.Equirectangular, c.u, c.v, 1)
		if !near(dir, c.want) {
			t.Errorf("equirect(%v,%v) = %+v, want %+v", c.u, c.v, dir, c.want)
		}
	}
}

func TestStereographicUnitRadiusIsHalfAngle(t *testing.T) {
	// A 180° field puts the frame edge on the horizon of the forward hemisphere.
	dir, ok := Direction(view.Stereographic, 1, 0, 1)
	if !ok || !near(dir, vectors.UnitX) {
		t.Errorf("right edge = %+v, want +X", dir)
	}
	dir, _ = Direction(view.Stereographic, 0, -1, 1)
	if !near(dir, vectors.UnitY) {
		t.Errorf("top edge = %+v, want +Y", dir)
	}

	// At 90° the edge sits 45° off axis.
	dir, _ = Direction(view.Stereographic, 1, 0, 0.5)
	if got := math.Acos(dir.Z); math.Abs(got-math.Pi/4) > eps {
		t.Errorf("angle off axis = %v, want π/4", got)
	}
}

func TestStereographicInfinityIsBackPole(t *testing.T) {
	dir, ok := fromStereographic(math.Inf(1), 0)
	if !ok || dir != (vectors.Vec3{Z: -1}) {
		t.Errorf("infinity = %+v, want -Z", dir)
	}
	if _, ok := fromStereographic(math.NaN(), 0); ok {
		t.Error("NaN produced a ray")
	}
}

func TestPerspectiveFullFOVStaysFinite(t *testing.T) {
	for _, u := range []float64{-1, 0, 1} {
		for _, v := range []float64{-1, 0, 1} {
			dir, ok := Direction(view.Perspective, u, v, 1)
			if !ok || !dir.IsFinite() || dir.Z <= 0 {
				t.Errorf("perspective(%v,%v) at 180° = %+v ok=%v", u, v, dir, ok)
			}
		}
	}
}

func TestPerspectiveEdgeAngle(t *testing.T) {
	dir, _ := Direction(view.Perspective, 1, 0, 0.5)
	if got := math.Atan2(dir.X, dir.Z); math.Abs(got-math.Pi/4) > eps {
		t.Errorf("edge angle at 90° = %v, want π/4", got)
	}
}

func TestQuincuncialLandmarks(t *testing.T) {
	cases := []struct {
		name string
		u, v float64
		want vectors.Vec3
	}{
		{"right", 1, 0, vectors.UnitX},
		{"left", -1, 0, vectors.Vec3{X: -1}},
		{"top", 0, -1, vectors.UnitY},
		{"bottom", 0, 1, vectors.Vec3{Y: -1}},
		{"top-left", -1, -1, vectors.Vec3{Z: -1}},
		{"top-right", 1, -1, vectors.Vec3{Z: -1}},
		{"bottom-left", -1, 1, vectors.Vec3{Z: -1}},
		{"bottom-right", 1, 1, vectors.Vec3{Z: -1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir, ok := Direction(view.Quincuncial, c.u, c.v, 1)
			if !ok {
				t.Fatal("no ray")
			}
			if vectors.Distance(dir, c.want) > 1e-6 {
				t.Errorf("got %+v, want %+v", dir, c.want)
			}
		})
	}
}

func TestQuincuncialFoldsOutsideSquare(t *testing.T) {
	outside, ok := Direction(view.Quincuncial, 1.5, 0.2, 1)
	if !ok {
		t.Fatal("no ray outside the square")
	}
	inside, _ := Direction(view.Quincuncial, 0.5, -0.2, 1)
	if !near(outside, inside) {
		t.Errorf("folded = %+v, want %+v", outside, inside)
	}

	// Crossing an edge is continuous.
	a, _ := Direction(view.Quincuncial, 1-1e-7, 0.3, 1)
	b, _ := Direction(view.Quincuncial, 1+1e-7, 0.3, 1)
	if vectors.Distance(a, b) > 1e-5 {
		t.Errorf("discontinuity across edge: %+v vs %+v", a, b)
	}
}

func TestFoldPeirce(t *testing.T) {
	cases := []struct{ p, q, wp, wq float64 }{
		{0.2, 0.3, 0.2, 0.3},
		{1.5, 0.2, 0.5, -0.2},
		{-1.25, 0.5, -0.75, -0.5},
		{0.25, 1.5, -0.25, 0.5},
		{0.25, -1.5, -0.25, -0.5},
		{3, 0, -1, 0},
	}
	for _, c := range cases {
		p, q, ok := foldPeirce(c.p, c.q)
		if !ok || math.Abs(p-c.wp) > eps || math.Abs(q-c.wq) > eps {
			t.Errorf("foldPeirce(%v,%v) = (%v,%v,%v), want (%v,%v)", c.p, c.q, p, q, ok, c.wp, c.wq)
		}
	}
	if _, _, ok := foldPeirce(math.Inf(1), 0); ok {
		t.Error("infinite input folded")
	}
}

func TestRotateZeroIsIdentity(t *testing.T) {
	ray := vectors.Vec3{X: 0.6, Y: 0, Z: 0.8}
	if got := Rotate(ray, 0, 0); !near(got, ray) {
		t.Errorf("Rotate(0,0) = %+v, want %+v", got, ray)
	}
	right, up, fwd := Basis(0, 0)
	if right != vectors.UnitX || up != vectors.UnitY || fwd != vectors.UnitZ {
		t.Errorf("Basis(0,0) = %+v %+v %+v", right, up, fwd)
	}
}

func TestRotateDirections(t *testing.T) {
	cases := []struct {
		name       string
		theta, phi float64
		want       vectors.Vec3
	}{
		{"yaw right", 0.5, 0, vectors.UnitX},
		{"yaw left", -0.5, 0, vectors.Vec3{X: -1}},
		{"yaw back", 1, 0, vectors.Vec3{Z: -1}},
		{"pitch up", 0, 1, vectors.UnitY},
		{"pitch down", 0, -1, vectors.Vec3{Y: -1}},
		{"up then yaw", 0.5, 0.5, vectors.Vec3{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}},
	}
	for _, c := range cases {
		if got := Rotate(vectors.UnitZ, c.theta, c.phi); !near(got, c.want) {
			t.Errorf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestBasisIsOrthonormal(t *testing.T) {
	r, u, f := Basis(0.3, -0.4)
	for _, d := range []float64{r.Dot(u), u.Dot(f), f.Dot(r)} {
		if math.Abs(d) > eps {
			t.Errorf("basis not orthogonal: %v", d)
		}
	}
	if !near(r.Cross(u), f) {
		t.Errorf("right × up = %+v, want forward %+v", r.Cross(u), f)
	}
}

func TestLonLatRoundTrip(t *testing.T) {
	for _, lon := range []float64{-3, -1, 0, 0.5, 2.9} {
		for _, lat := range []float64{-1.5, -0.2, 0, 0.7, 1.5} {
			gl, ga := LonLat(FromLonLat(lon, lat))
			if math.Abs(gl-lon) > eps || math.Abs(ga-lat) > eps {
				t.Errorf("(%v,%v) -> (%v,%v)", lon, lat, gl, ga)
			}
		}
	}
}
