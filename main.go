package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/echoflaresat/spheresquash/config"
	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/render"
	"github.com/echoflaresat/spheresquash/texture"
	"github.com/echoflaresat/spheresquash/view"
)

var errNoInput = errors.New("no input panorama given (use -in)")

type options struct {
	config, in, out, mode *string
	theta, phi, fov       *float64
	workers, supersample  *int
	keepAspect            *bool
	quality               *int
	logLevel, logFile     *string
	showHelp              *bool
}

func defineFlags(fs *flag.FlagSet) options {
	def := config.Default()
	return options{
		config: fs.String("config", "", "YAML config file; searched in ./ and the user config dir when empty"),
		in:     fs.String("in", "", "Equirectangular panorama to reproject (png, jpeg, bmp, webp, tiff)"),
		out:    fs.String("out", def.Output.Path, "Output file (.png, .jpg, .jpeg, .tif, .tiff)"),

		mode:  fs.String("mode", def.View.Mode.String(), "Projection: equirectangular, stereographic, perspective, quincuncial (or 0-3)"),
		theta: fs.Float64("theta", def.View.Theta, "Azimuth in degrees, cyclic"),
		phi:   fs.Float64("phi", def.View.Phi, "Elevation in degrees [-90, 90]"),
		fov:   fs.Float64("fov", 0, "Field of view in degrees (0, 180]; defaults to the mode's own"),

		workers:     fs.Int("workers", def.Render.Workers, "Render workers; 0 uses every CPU"),
		supersample: fs.Int("supersample", def.Render.Supersample, "Supersampling factor (higher is slower but smoother)"),
		keepAspect:  fs.Bool("keep-aspect", def.Render.KeepAspect, "Keep square pixels in non-equirectangular modes"),
		quality:     fs.Int("quality", def.Output.JPEGQuality, "JPEG quality [1, 100]"),

		logLevel: fs.String("log-level", def.Logging.Level, "Log level: debug, info, warn, error"),
		logFile:  fs.String("log-file", def.Logging.LogFile, "Also log to this file (rotated)"),

		showHelp: fs.Bool("h", false, "Show this help message"),
	}
}

func printHelp(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, `SphereSquash - Panorama Reprojector

Usage:
  %[1]s -in pano.jpg [options]

`, fs.Name())

	printGroup(fs, "View Options", []string{"mode", "theta", "phi", "fov"})
	printGroup(fs, "Rendering Options", []string{"workers", "supersample", "keep-aspect"})
	printGroup(fs, "Input/Output", []string{"in", "out", "quality"})
	printGroup(fs, "Misc", []string{"config", "log-level", "log-file", "h"})
}

func printGroup(fs *flag.FlagSet, title string, keys []string) {
	w := fs.Output()
	fmt.Fprintf(w, "%s:\n", title)
	for _, name := range keys {
		if f := fs.Lookup(name); f != nil {
			fmt.Fprintf(w, "  -%-12s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(w)
}

// applyFlags copies explicitly set flags over the loaded config. The fov
// flag applies to the mode in effect after the mode flag.
func applyFlags(fs *flag.FlagSet, opts options, cfg *config.Config) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["mode"] {
		m, err := view.ParseMode(*opts.mode)
		if err != nil {
			return err
		}
		cfg.View.Mode = m
	}
	if set["theta"] {
		cfg.View.Theta = *opts.theta
	}
	if set["phi"] {
		cfg.View.Phi = *opts.phi
	}
	if set["fov"] {
		cfg.View.FOV.Set(cfg.View.Mode, *opts.fov)
	}
	if set["workers"] {
		cfg.Render.Workers = *opts.workers
	}
	if set["supersample"] {
		cfg.Render.Supersample = *opts.supersample
	}
	if set["keep-aspect"] {
		cfg.Render.KeepAspect = *opts.keepAspect
	}
	if set["out"] {
		cfg.Output.Path = *opts.out
	}
	if set["quality"] {
		cfg.Output.JPEGQuality = *opts.quality
	}
	if set["log-level"] {
		cfg.Logging.Level = *opts.logLevel
	}
	if set["log-file"] {
		cfg.Logging.LogFile = *opts.logFile
	}
	return nil
}

// run parses args, then loads, reprojects and saves one panorama.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("spheresquash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := defineFlags(fs)
	fs.Usage = func() { printHelp(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *opts.showHelp {
		printHelp(fs)
		return flag.ErrHelp
	}

	cfg, err := config.Load(*opts.config)
	if err != nil {
		return err
	}
	if err := applyFlags(fs, opts, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if *opts.in == "" {
		return errNoInput
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	defer logger.Sync()

	img, err := texture.Load(*opts.in)
	if err != nil {
		return err
	}
	src, err := render.NewSource(img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", texture.ErrDecode, *opts.in, err)
	}

	p := cfg.Params()
	logger.Info("Rendering",
		zap.String("in", *opts.in),
		zap.Stringer("mode", p.Mode),
		zap.Float64("theta", p.Theta),
		zap.Float64("phi", p.Phi),
		zap.Float64("fov", p.FOV),
		zap.Int("width", src.Width),
		zap.Int("height", src.Height),
	)

	start := time.Now()
	frame, err := render.Render(ctx, src, p, cfg.RenderOptions())
	if err != nil {
		return err
	}
	logger.Debug("Rendered", zap.Duration("took", time.Since(start)))

	if err := texture.Save(cfg.Output.Path, frame, cfg.Output.JPEGQuality); err != nil {
		return err
	}
	logger.Info("Saved", zap.String("out", cfg.Output.Path))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// console logging until the config has been read
	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err := run(ctx, os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		stop()
		logger.Fatal("Failed", zap.Error(err))
	}
}
