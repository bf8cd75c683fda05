// Command panoview is an interactive terminal viewer for equirectangular
// panoramas. Drag to look around, drag the bottom row to spin, 1-4 pick the
// projection, +/- change the field of view, s exports the current view.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/echoflaresat/spheresquash/config"
	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/render"
	"github.com/echoflaresat/spheresquash/texture"
	"github.com/echoflaresat/spheresquash/view"
)

type flags struct {
	config, in, out, mode *string
	previewWidth          *int
	logLevel, logFile     *string
	showHelp              *bool
}

func defineFlags() flags {
	def := config.Default()
	return flags{
		config: flag.String("config", "", "YAML config file; searched in ./ and the user config dir when empty"),
		in:     flag.String("in", "", "Equirectangular panorama to view"),
		out:    flag.String("out", def.Output.Path, "Export path used by the s key"),
		mode:   flag.String("mode", def.View.Mode.String(), "Starting projection: equirectangular, stereographic, perspective, quincuncial"),

		previewWidth: flag.Int("preview-width", def.Viewer.PreviewWidth, "Width the panorama is reduced to for interactive rendering"),

		logLevel: flag.String("log-level", def.Logging.Level, "Log level: debug, info, warn, error"),
		logFile:  flag.String("log-file", def.Logging.LogFile, "Log file; the screen is never logged to"),

		showHelp: flag.Bool("h", false, "Show this help message"),
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `PanoView - Terminal Panorama Viewer

Usage:
  %[1]s -in pano.jpg [options]

Keys:
  drag            look around (hold shift to lock to one axis)
  drag bottom row spin
  arrows          pan
  1-4             equirectangular, stereographic, perspective, quincuncial
  + / -           widen / narrow the field of view
  r               reset the view
  s               export the view at full resolution
  q, Esc          quit

`, os.Args[0])

	printGroup("Options", []string{"in", "out", "mode", "preview-width"})
	printGroup("Misc", []string{"config", "log-level", "log-file", "h"})
}

func printGroup(title string, keys []string) {
	fmt.Fprintf(os.Stderr, "%s:\n", title)
	for _, name := range keys {
		if f := flag.Lookup(name); f != nil {
			fmt.Fprintf(os.Stderr, "  -%-14s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(os.Stderr)
}

func loadConfig(fl flags) (*config.Config, error) {
	cfg, err := config.Load(*fl.config)
	if err != nil {
		return nil, err
	}

	var ferr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.Path = *fl.out
		case "mode":
			m, err := view.ParseMode(*fl.mode)
			if err != nil {
				ferr = err
				return
			}
			cfg.View.Mode = m
		case "preview-width":
			cfg.Viewer.PreviewWidth = *fl.previewWidth
		case "log-level":
			cfg.Logging.Level = *fl.logLevel
		case "log-file":
			cfg.Logging.LogFile = *fl.logFile
		}
	})
	if ferr != nil {
		return nil, ferr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config, in string) error {
	img, err := texture.Load(in)
	if err != nil {
		return err
	}
	src, err := render.NewSource(img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", texture.ErrDecode, in, err)
	}
	logger.Info("Loaded panorama", zap.String("path", in), zap.Int("width", src.Width), zap.Int("height", src.Height))

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	v := newViewer(screen, cfg, src)
	defer v.close()

	v.pump()
	v.start()
	v.loop()
	return nil
}

func main() {
	fl := defineFlags()
	flag.Usage = printHelp
	flag.Parse()

	if *fl.showHelp {
		printHelp()
		return
	}
	if *fl.in == "" {
		printHelp()
		os.Exit(2)
	}

	cfg, err := loadConfig(fl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *fl.in); err != nil {
		logger.Error("Viewer failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "panoview: %v\n", err)
		os.Exit(1)
	}
}
