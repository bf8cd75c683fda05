// Package interact turns pointer gestures into view changes. It knows
// nothing about any particular input device; callers pass drag distances in
// whatever unit they measure (terminal cells, pixels).
package interact

import "math"

// Panner receives view rotations in degrees. *view.State implements it.
type Panner interface {
	Pan(dTheta, dPhi float64)
}

// Constrain keeps only the dominant axis of a drag when lock is set; a tie
// keeps the horizontal axis.
func Constrain(dx, dy float64, lock bool) (float64, float64) {
	if !lock {
		return dx, dy
	}
	if math.Abs(dx) >= math.Abs(dy) {
		return dx, 0
	}
	return 0, dy
}

// Pan applies a drag of (dx, dy) units: dragging right increases theta and
// dragging down lowers phi.
func Pan(p Panner, dx, dy float64, lock bool, degPerUnit float64) {
	dx, dy = Constrain(dx, dy, lock)
	if dx == 0 && dy == 0 {
		return
	}
	p.Pan(dx*degPerUnit, -dy*degPerUnit)
}

// Dial is an endless horizontal slider: dragging across its full width
// sweeps its whole range once, and the value wraps around at either end.
type Dial struct {
	Min, Max float64
	Width    float64 // drag distance of one full turn

	interval  float64 // position within one turn, [0, 1)
	dragStart float64
	dragging  bool
}

// NewDial returns a dial resting at the middle of [min, max].
func NewDial(min, max, width float64) *Dial {
	return &Dial{Min: min, Max: max, Width: width, interval: 0.5}
}

// Drag moves the dial by the total translation since the drag began and
// returns the new value. The first call of a drag records its start.
func (d *Dial) Drag(translation float64) float64 {
	if !d.dragging {
		d.dragStart = d.interval
		d.dragging = true
	}
	if d.Width > 0 {
		d.interval = wrapUnit(d.dragStart + translation/d.Width)
	}
	return d.Value()
}

// End finishes the current drag.
func (d *Dial) End() {
	d.dragging = false
}

// Dragging reports whether a drag is in progress.
func (d *Dial) Dragging() bool {
	return d.dragging
}

// Value maps the dial position onto [Min, Max).
func (d *Dial) Value() float64 {
	return d.interval*(d.Max-d.Min) + d.Min
}

// SetValue moves the dial to v, wrapping values outside the range, so the
// dial follows changes made by other controls.
func (d *Dial) SetValue(v float64) {
	if d.Max == d.Min {
		return
	}
	d.interval = wrapUnit((v - d.Min) / (d.Max - d.Min))
}

// Ticks returns the positions of n+1 evenly spaced tick marks across width,
// shifted with the dial so that they appear to turn with it.
func (d *Dial) Ticks(n int, width float64) []float64 {
	if n <= 0 {
		return nil
	}
	step := width / float64(n)
	offset := d.interval * step
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		pos := float64(i)*step + offset
		if pos < width {
			out = append(out, pos)
		}
	}
	return out
}

func wrapUnit(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x++
	}
	if x >= 1 {
		x = 0
	}
	return x
}
