// Package view holds the viewing parameters of a session and converts the
// user-facing degree values into the normalized units the engine consumes.
package view

import (
	"fmt"
	"strings"
)

// Mode selects the projection used to render the destination image.
// The numeric values match the order of the mode picker.
type Mode int

const (
	Equirectangular Mode = iota
	Stereographic
	Perspective
	Quincuncial

	modeCount
)

// Modes lists every projection mode in picker order.
var Modes = [...]Mode{Equirectangular, Stereographic, Perspective, Quincuncial}

var modeNames = [modeCount]string{
	Equirectangular: "equirectangular",
	Stereographic:   "stereographic",
	Perspective:     "perspective",
	Quincuncial:     "quincuncial",
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= 0 && m < modeCount
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// DefaultFOV returns the field of view in degrees a mode starts with.
func (m Mode) DefaultFOV() float64 {
	if m == Perspective {
		return 90
	}
	return 180
}

// ParseMode accepts a mode name (case-insensitive, "peirce" and "rectilinear"
// as aliases) or its picker index.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "0", "equirect":
		return Equirectangular, nil
	case "1", "stereo":
		return Stereographic, nil
	case "2", "rectilinear":
		return Perspective, nil
	case "3", "peirce":
		return Quincuncial, nil
	}
	for _, m := range Modes {
		if modeNames[m] == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown projection mode %q", s)
}

// MarshalText implements encoding.TextMarshaler so modes read naturally in
// config files.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid projection mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
