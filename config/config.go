// Package config handles configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/render"
	"github.com/echoflaresat/spheresquash/texture"
	"github.com/echoflaresat/spheresquash/view"
)

// MaxSupersample bounds the per-axis sample count.
const MaxSupersample = 8

// Config holds all settings shared by the batch renderer and the viewer.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	View    ViewConfig    `yaml:"view"`
	Output  OutputConfig  `yaml:"output"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// RenderConfig holds frame computation settings.
type RenderConfig struct {
	Workers     int  `yaml:"workers"` // 0 = one per CPU
	Supersample int  `yaml:"supersample"`
	KeepAspect  bool `yaml:"keep_aspect"`
}

// ViewConfig holds the initial view. Angles are in degrees.
type ViewConfig struct {
	Mode  view.Mode `yaml:"mode"`
	Theta float64   `yaml:"theta"`
	Phi   float64   `yaml:"phi"`
	FOV   FOVConfig `yaml:"fov"`
}

// FOVConfig holds the starting field of view of every mode; 0 keeps the
// mode's default.
type FOVConfig struct {
	Equirectangular float64 `yaml:"equirectangular"`
	Stereographic   float64 `yaml:"stereographic"`
	Perspective     float64 `yaml:"perspective"`
	Quincuncial     float64 `yaml:"quincuncial"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Path        string `yaml:"path"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// ViewerConfig holds terminal viewer settings.
type ViewerConfig struct {
	PreviewWidth       int     `yaml:"preview_width"` // source is downscaled to this width
	DragDegreesPerCell float64 `yaml:"drag_degrees_per_cell"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Workers:     0,
			Supersample: 1,
			KeepAspect:  false,
		},
		View: ViewConfig{
			Mode: view.Equirectangular,
			FOV: FOVConfig{
				Equirectangular: view.Equirectangular.DefaultFOV(),
				Stereographic:   view.Stereographic.DefaultFOV(),
				Perspective:     view.Perspective.DefaultFOV(),
				Quincuncial:     view.Quincuncial.DefaultFOV(),
			},
		},
		Output: OutputConfig{
			Path:        texture.DefaultOutput,
			JPEGQuality: texture.DefaultJPEGQuality,
		},
		Viewer: ViewerConfig{
			PreviewWidth:       1024,
			DragDegreesPerCell: 2,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Get returns the configured fov of m.
func (f FOVConfig) Get(m view.Mode) float64 {
	switch m {
	case view.Equirectangular:
		return f.Equirectangular
	case view.Stereographic:
		return f.Stereographic
	case view.Perspective:
		return f.Perspective
	case view.Quincuncial:
		return f.Quincuncial
	}
	return 0
}

// Set stores deg as the fov of m.
func (f *FOVConfig) Set(m view.Mode, deg float64) {
	switch m {
	case view.Equirectangular:
		f.Equirectangular = deg
	case view.Stereographic:
		f.Stereographic = deg
	case view.Perspective:
		f.Perspective = deg
	case view.Quincuncial:
		f.Quincuncial = deg
	}
}

// FOVTable returns the per-mode fov table the view state starts from.
func (c *Config) FOVTable() view.FOVTable {
	tbl := view.NewFOVTable()
	for _, m := range view.Modes {
		if deg := c.View.FOV.Get(m); deg > 0 {
			tbl.Set(m, deg)
		}
	}
	return tbl
}

// Params returns the initial view parameters.
func (c *Config) Params() view.Params {
	tbl := c.FOVTable()
	return view.Params{
		Mode:  c.View.Mode,
		Theta: c.View.Theta,
		Phi:   c.View.Phi,
		FOV:   tbl.Get(c.View.Mode),
	}
}

// RenderOptions returns the engine options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Workers:     c.Render.Workers,
		Supersample: c.Render.Supersample,
		KeepAspect:  c.Render.KeepAspect,
	}
}

// Validate reports every setting outside its accepted range. Theta is
// cyclic and never rejected.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Render.Workers >= 0, "render.workers must be >= 0, got %d", c.Render.Workers)
	check(c.Render.Supersample >= 1 && c.Render.Supersample <= MaxSupersample,
		"render.supersample must be in [1, %d], got %d", MaxSupersample, c.Render.Supersample)

	check(c.View.Mode.Valid(), "view.mode %d is not a projection mode", int(c.View.Mode))
	check(c.View.Phi >= -view.MaxPhi && c.View.Phi <= view.MaxPhi,
		"view.phi must be in [-90, 90], got %v", c.View.Phi)
	for _, m := range view.Modes {
		deg := c.View.FOV.Get(m)
		check(deg >= 0 && deg <= view.MaxFOV, "view.fov.%s must be in [0, 180], got %v", m, deg)
	}

	if c.Output.Path != "" {
		_, err := texture.FormatFor(c.Output.Path)
		check(err == nil, "output.path: %v", err)
	}
	check(c.Output.JPEGQuality >= 1 && c.Output.JPEGQuality <= 100,
		"output.jpeg_quality must be in [1, 100], got %d", c.Output.JPEGQuality)

	check(c.Viewer.PreviewWidth >= 0, "viewer.preview_width must be >= 0, got %d", c.Viewer.PreviewWidth)
	check(c.Viewer.DragDegreesPerCell > 0, "viewer.drag_degrees_per_cell must be > 0, got %v", c.Viewer.DragDegreesPerCell)

	_, err := logger.ParseLevel(c.Logging.Level)
	check(err == nil, "logging.level: %v", err)

	return errors.Join(errs...)
}
