package render

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/echoflaresat/spheresquash/logger"
	"github.com/echoflaresat/spheresquash/view"
)

// ErrClosed is returned by Request after Close.
var ErrClosed = errors.New("render: session closed")

// Frame is a finished render tagged with the generation of the request that
// produced it.
type Frame struct {
	Gen    uint64
	Params view.Params
	Image  *image.RGBA
}

// Session renders frames in the background for an interactive viewer. Each
// Request supersedes the previous one: the older render is cancelled and,
// should it finish anyway, its frame is dropped. Only frames of the latest
// generation are ever published.
type Session struct {
	opts Options

	mu      sync.Mutex
	src     *Source
	gen     uint64
	cancel  context.CancelFunc
	current *Frame
	closed  bool

	frames chan Frame
	wg     sync.WaitGroup
}

// NewSession returns a session without a source.
func NewSession(opts Options) *Session {
	return &Session{
		opts:   opts,
		frames: make(chan Frame, 1),
	}
}

// Frames delivers published frames. It holds at most one frame; an unread
// frame is replaced by a newer one. The channel is closed by Close.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// Current returns the last published frame.
func (s *Session) Current() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Frame{}, false
	}
	return *s.current, true
}

// Source returns the session's current source, or nil.
func (s *Session) Source() *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// SetSource replaces the panorama. In-flight work for the old source is
// cancelled; the last published frame stays current until a new one lands.
func (s *Session) SetSource(src *Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelLocked()
	s.gen++
	s.src = src
}

// Request starts rendering p and returns its generation. Without a source it
// returns ErrNoSource and the current frame is left alone.
func (s *Session) Request(p view.Params) (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if s.src == nil {
		s.mu.Unlock()
		return 0, ErrNoSource
	}
	s.cancelLocked()
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	src := s.src
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, cancel, gen, src, p)
	return gen, nil
}

// Close cancels any in-flight render, waits for it to stop and closes the
// frame channel.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	s.wg.Wait()
	close(s.frames)
}

func (s *Session) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, gen uint64, src *Source, p view.Params) {
	defer s.wg.Done()
	defer cancel()

	start := time.Now()
	img, err := Render(ctx, src, p, s.opts)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			logger.Debug("render superseded", zap.Uint64("gen", gen))
			return
		}
		logger.Warn("render failed", zap.Uint64("gen", gen), zap.Error(err))
		return
	}

	if !s.publish(Frame{Gen: gen, Params: p, Image: img}) {
		logger.Debug("stale frame dropped", zap.Uint64("gen", gen))
		return
	}
	logger.Debug("frame published",
		zap.Uint64("gen", gen),
		zap.Stringer("mode", p.Mode),
		zap.Duration("took", time.Since(start)))
}

// publish stores f as current and hands it to the channel, replacing an
// unread frame. Sends only happen under mu, so the send never blocks.
func (s *Session) publish(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || f.Gen != s.gen {
		return false
	}
	s.current = &f
	select {
	case <-s.frames:
	default:
	}
	s.frames <- f
	return true
}
