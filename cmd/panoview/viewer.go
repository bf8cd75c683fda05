package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/echoflaresat/spheresquash/config"
	"github.com/echoflaresat/spheresquash/interact"
	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/render"
	"github.com/echoflaresat/spheresquash/texture"
	"github.com/echoflaresat/spheresquash/view"
)

const (
	panStep    = 5.0 // degrees per arrow key
	fovStep    = 5.0
	minFOV     = 1.0 // narrowest fov reachable from the keyboard
	chromeRows = 2   // status line and dial
	dialTicks  = 20
)

type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdMode1
	cmdMode2
	cmdMode3
	cmdMode4
	cmdWider
	cmdNarrower
	cmdLeft
	cmdRight
	cmdUp
	cmdDown
	cmdReset
	cmdSave
)

// saveResult reports a finished export back to the event loop.
type saveResult struct {
	path string
	err  error
}

type viewer struct {
	screen  tcell.Screen
	cfg     *config.Config
	state   *view.State
	session *render.Session
	full    *render.Source
	dial    *interact.Dial

	frame  *image.RGBA
	status string

	dragging     bool
	onDial       bool
	startX       int
	lastX, lastY int

	saves sync.WaitGroup
}

// newViewer shows full through a preview-sized copy; exports render full.
func newViewer(screen tcell.Screen, cfg *config.Config, full *render.Source) *viewer {
	w, _ := screen.Size()
	v := &viewer{
		screen:  screen,
		cfg:     cfg,
		state:   view.NewStateFrom(cfg.Params(), cfg.FOVTable()),
		session: render.NewSession(cfg.RenderOptions()),
		full:    full,
		dial:    interact.NewDial(-view.MaxTheta, view.MaxTheta, float64(w)),
	}
	v.dial.SetValue(v.state.Params().Theta)
	v.session.SetSource(full.Downscale(cfg.Viewer.PreviewWidth))
	v.state.OnChange(v.onChange)
	return v
}

func (v *viewer) onChange(p view.Params) {
	if !v.dial.Dragging() {
		v.dial.SetValue(p.Theta)
	}
	v.request(p)
}

func (v *viewer) request(p view.Params) {
	if _, err := v.session.Request(p); err != nil {
		logger.Warn("render request refused", zap.Error(err))
	}
}

// start renders the initial view.
func (v *viewer) start() {
	v.request(v.state.Params())
}

// pump forwards published frames into the screen's event queue until the
// session is closed.
func (v *viewer) pump() {
	go func() {
		for f := range v.session.Frames() {
			if err := v.screen.PostEvent(tcell.NewEventInterrupt(f)); err != nil {
				logger.Debug("frame event dropped", zap.Uint64("gen", f.Gen), zap.Error(err))
			}
		}
	}()
}

// close waits for pending exports and stops the session.
func (v *viewer) close() {
	v.saves.Wait()
	v.session.Close()
}

func (v *viewer) loop() {
	for {
		v.draw()
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		if !v.handleEvent(ev) {
			return
		}
	}
}

// handleEvent returns false when the viewer should quit.
func (v *viewer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		w, _ := v.screen.Size()
		v.dial.Width = float64(w)
	case *tcell.EventKey:
		return v.apply(keyCommand(ev))
	case *tcell.EventMouse:
		x, y := ev.Position()
		pressed := ev.Buttons()&tcell.Button1 != 0
		v.pointer(x, y, pressed, ev.Modifiers()&tcell.ModShift != 0)
	case *tcell.EventInterrupt:
		v.onInterrupt(ev.Data())
	}
	return true
}

func keyCommand(ev *tcell.EventKey) command {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return cmdQuit
	case tcell.KeyLeft:
		return cmdLeft
	case tcell.KeyRight:
		return cmdRight
	case tcell.KeyUp:
		return cmdUp
	case tcell.KeyDown:
		return cmdDown
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return cmdQuit
		case '1':
			return cmdMode1
		case '2':
			return cmdMode2
		case '3':
			return cmdMode3
		case '4':
			return cmdMode4
		case '+', '=':
			return cmdWider
		case '-', '_':
			return cmdNarrower
		case 'r', 'R':
			return cmdReset
		case 's', 'S':
			return cmdSave
		}
	}
	return cmdNone
}

// apply returns false for cmdQuit.
func (v *viewer) apply(cmd command) bool {
	switch cmd {
	case cmdQuit:
		return false
	case cmdMode1, cmdMode2, cmdMode3, cmdMode4:
		v.state.SetMode(view.Modes[cmd-cmdMode1])
	case cmdWider:
		v.state.SetFOV(v.state.Params().FOV + fovStep)
	case cmdNarrower:
		v.state.SetFOV(max(v.state.Params().FOV-fovStep, minFOV))
	case cmdLeft:
		v.state.Pan(-panStep, 0)
	case cmdRight:
		v.state.Pan(panStep, 0)
	case cmdUp:
		v.state.Pan(0, panStep)
	case cmdDown:
		v.state.Pan(0, -panStep)
	case cmdReset:
		v.state.Reset()
	case cmdSave:
		v.save()
	}
	return true
}

// pointer tracks a primary-button drag. A drag starting on the bottom row
// spins the dial; anywhere else it pans the view, one axis only while shift
// is held.
func (v *viewer) pointer(x, y int, pressed, shift bool) {
	if !pressed {
		if v.dragging {
			v.dragging = false
			v.dial.End()
		}
		return
	}

	_, h := v.screen.Size()
	if !v.dragging {
		v.dragging = true
		v.onDial = y == h-1
		v.startX = x
		v.lastX, v.lastY = x, y
		return
	}

	if v.onDial {
		v.state.SetTheta(v.dial.Drag(float64(x - v.startX)))
		return
	}
	interact.Pan(v.state, float64(x-v.lastX), float64(y-v.lastY), shift, v.cfg.Viewer.DragDegreesPerCell)
	v.lastX, v.lastY = x, y
}

func (v *viewer) onInterrupt(data any) {
	switch data := data.(type) {
	case render.Frame:
		// an older frame may still be queued behind a newer one
		if f, ok := v.session.Current(); ok {
			v.frame = f.Image
		}
	case saveResult:
		if data.err != nil {
			v.status = "save failed: " + data.err.Error()
			logger.Error("Save failed", zap.String("path", data.path), zap.Error(data.err))
			return
		}
		v.status = "saved " + data.path
		logger.Info("Saved", zap.String("path", data.path))
	}
}

// save exports the current view at full resolution in the background.
func (v *viewer) save() {
	p := v.state.Params()
	path, quality := v.cfg.Output.Path, v.cfg.Output.JPEGQuality
	opts := v.cfg.RenderOptions()
	v.status = "saving " + path + "..."

	v.saves.Add(1)
	go func() {
		defer v.saves.Done()
		img, err := render.Render(context.Background(), v.full, p, opts)
		if err == nil {
			err = texture.Save(path, img, quality)
		}
		if perr := v.screen.PostEvent(tcell.NewEventInterrupt(saveResult{path: path, err: err})); perr != nil {
			logger.Warn("save result dropped", zap.String("path", path), zap.Error(perr))
		}
	}()
}

func (v *viewer) draw() {
	w, h := v.screen.Size()
	v.screen.Clear()
	if rows := h - chromeRows; v.frame != nil && rows > 0 && w > 0 {
		blit(v.screen, v.frame, w, rows)
	}
	if h >= 2 {
		v.drawStatus(h-2, w)
	}
	if h >= 1 {
		v.drawDial(h-1, w)
	}
	v.screen.Show()
}

func (v *viewer) drawStatus(y, w int) {
	p := v.state.Params()
	line := fmt.Sprintf(" %s  theta %6.1f  phi %5.1f  fov %5.1f  %s",
		p.Mode, p.Theta, p.Phi, p.FOV, v.status)
	putString(v.screen, 0, y, w, line, tcell.StyleDefault.Reverse(true))
}

func (v *viewer) drawDial(y, w int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, '─', nil, style)
	}
	for _, pos := range v.dial.Ticks(dialTicks, float64(w)) {
		v.screen.SetContent(int(pos), y, '┼', nil, style.Foreground(tcell.ColorWhite))
	}
}

// blit scales img onto cols×rows cells, two pixel rows per cell: the upper
// half block takes the top pixel as foreground and the bottom one as
// background.
func blit(screen tcell.Screen, img image.Image, cols, rows int) {
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	for cy := 0; cy < rows; cy++ {
		for x := 0; x < cols; x++ {
			top, bottom := dst.RGBAAt(x, 2*cy), dst.RGBAAt(x, 2*cy+1)
			style := tcell.StyleDefault.Foreground(cellColor(top)).Background(cellColor(bottom))
			screen.SetContent(x, cy, '▀', nil, style)
		}
	}
}

// cellColor drops alpha; pixels are premultiplied, so transparent ones turn
// black.
func cellColor(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func putString(screen tcell.Screen, x, y, w int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= w {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < w; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}
}
