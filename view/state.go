package view

import "sync"

// FOVTable remembers the last field of view used by each mode, so switching
// modes never resets or mixes up another mode's value.
type FOVTable [modeCount]float64

// NewFOVTable returns a table holding every mode's default.
func NewFOVTable() FOVTable {
	var t FOVTable
	for _, m := range Modes {
		t[m] = m.DefaultFOV()
	}
	return t
}

// Get returns the remembered fov for m, or m's default when the entry was
// never filled.
func (t *FOVTable) Get(m Mode) float64 {
	if !m.Valid() {
		return Equirectangular.DefaultFOV()
	}
	if t[m] <= 0 {
		return m.DefaultFOV()
	}
	return t[m]
}

// Set stores a clamped fov for m.
func (t *FOVTable) Set(m Mode, deg float64) {
	if !m.Valid() {
		return
	}
	t[m] = ClampFOV(deg)
}

// State is the single mutable view of a session. Every mutation notifies the
// registered listeners with the resulting Params.
type State struct {
	mu        sync.Mutex
	mode      Mode
	theta     float64
	phi       float64
	fovs      FOVTable
	listeners []func(Params)
}

// NewState starts in equirectangular mode looking at (0,0) with default fovs.
func NewState() *State {
	return &State{fovs: NewFOVTable()}
}

// NewStateFrom starts from p and a remembered fov table; p.FOV wins for
// p.Mode.
func NewStateFrom(p Params, fovs FOVTable) *State {
	s := &State{
		mode:  p.Mode,
		theta: WrapTheta(p.Theta),
		phi:   ClampPhi(p.Phi),
		fovs:  fovs,
	}
	if !s.mode.Valid() {
		s.mode = Equirectangular
	}
	if p.FOV > 0 {
		s.fovs.Set(s.mode, p.FOV)
	}
	return s
}

// OnChange registers fn to be called after every change.
func (s *State) OnChange(fn func(Params)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Params returns a snapshot of the current parameters.
func (s *State) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paramsLocked()
}

func (s *State) paramsLocked() Params {
	return Params{Mode: s.mode, Theta: s.theta, Phi: s.phi, FOV: s.fovs.Get(s.mode)}
}

// FOV returns the remembered fov of m.
func (s *State) FOV(m Mode) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fovs.Get(m)
}

// SetMode switches the projection; the new mode's own fov applies.
func (s *State) SetMode(m Mode) {
	if !m.Valid() {
		return
	}
	s.update(func() { s.mode = m })
}

// SetTheta sets the azimuth in degrees, wrapped into [-180, 180).
func (s *State) SetTheta(deg float64) {
	s.update(func() { s.theta = WrapTheta(deg) })
}

// SetPhi sets the elevation in degrees, clamped to [-90, 90].
func (s *State) SetPhi(deg float64) {
	s.update(func() { s.phi = ClampPhi(deg) })
}

// SetFOV sets the fov of the active mode.
func (s *State) SetFOV(deg float64) {
	s.update(func() { s.fovs.Set(s.mode, deg) })
}

// Pan adds to theta and phi in one change; phi is clamped after the sum.
func (s *State) Pan(dTheta, dPhi float64) {
	s.update(func() {
		s.theta = WrapTheta(s.theta + dTheta)
		s.phi = ClampPhi(s.phi + dPhi)
	})
}

// Reset returns to the view origin and the default fov of every mode while
// keeping the active mode.
func (s *State) Reset() {
	s.update(func() {
		s.theta, s.phi = 0, 0
		s.fovs = NewFOVTable()
	})
}

func (s *State) update(change func()) {
	s.mu.Lock()
	change()
	p := s.paramsLocked()
	listeners := append([]func(Params){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}
