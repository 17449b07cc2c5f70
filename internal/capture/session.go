// Package capture provides the capture collaborator for scan sessions: frame
// sources, code tracking, and projection of capture geometry into view space.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
)

// Setup failures. Each is fatal to starting a session; nothing retries them.
var (
	ErrNoDevice          = errors.New("no capture device available")
	ErrInputUnavailable  = errors.New("capture input unavailable")
	ErrOutputUnavailable = errors.New("detection output unavailable")
)

// Source kinds accepted by Open.
const (
	SourceReplay = "replay"
	SourceWatch  = "watch"
)

// Source produces raw frames until its context is done or it runs dry.
type Source interface {
	Frames(ctx context.Context) (<-chan FrameDoc, error)
}

// Sink receives frames; *scan.Machine satisfies it.
type Sink interface {
	SubmitDetection(ctx context.Context, f scan.Frame) error
}

// Config configures a capture session.
type Config struct {
	Source       string // "replay" or "watch"
	Path         string // script file or inbox directory
	Sensor       geom.Size
	View         geom.Size
	Symbologies  []scan.CodeType
	ForgetAfter  int  // frames; default 30
	ReadAttempts uint // watch source only; default 5
	Clock        scan.Clock
	Logger       *slog.Logger
}

// Session is a running capture: it pumps frames to a Sink and serves code
// projections back to the scan machine.
type Session struct {
	source      Source
	tracker     *Tracker
	preview     Preview
	symbologies map[scan.CodeType]bool
	clock       scan.Clock
	logger      *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Open checks the setup preconditions and builds the configured source.
func Open(cfg Config) (*Session, error) {
	var src Source
	switch cfg.Source {
	case SourceReplay:
		script, err := LoadScript(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
		}
		src = NewReplaySource(script, cfg.Clock)
	case SourceWatch:
		info, err := os.Stat(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrInputUnavailable, cfg.Path)
		}
		src = NewWatchSource(cfg.Path, cfg.ReadAttempts, cfg.Logger)
	case "":
		return nil, ErrNoDevice
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrNoDevice, cfg.Source)
	}
	return NewSession(src, cfg)
}

// NewSession wraps an arbitrary source.
func NewSession(src Source, cfg Config) (*Session, error) {
	if src == nil {
		return nil, ErrNoDevice
	}
	if !cfg.Sensor.Valid() {
		return nil, fmt.Errorf("%w: invalid sensor size %vx%v", ErrNoDevice, cfg.Sensor.Width, cfg.Sensor.Height)
	}
	if !cfg.View.Valid() {
		return nil, fmt.Errorf("%w: invalid view size %vx%v", ErrOutputUnavailable, cfg.View.Width, cfg.View.Height)
	}
	if len(cfg.Symbologies) == 0 {
		return nil, fmt.Errorf("%w: no symbologies requested", ErrOutputUnavailable)
	}

	symbologies := make(map[scan.CodeType]bool, len(cfg.Symbologies))
	for _, ct := range cfg.Symbologies {
		symbologies[ct] = true
	}
	clock := cfg.Clock
	if clock == nil {
		clock = scan.SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		source:      src,
		tracker:     NewTracker(cfg.ForgetAfter),
		preview:     Preview{Sensor: cfg.Sensor, View: cfg.View},
		symbologies: symbologies,
		clock:       clock,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}, nil
}

// Run pumps frames from the source to sink until the source runs dry, Stop
// is called, the sink closes, or ctx is done. Only a cancelled ctx is
// reported as an error.
func (s *Session) Run(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	frames, err := s.source.Frames(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return s.exitErr(ctx)
		case doc, ok := <-frames:
			if !ok {
				s.logger.Debug("capture source exhausted", "frames", seq)
				return nil
			}
			seq++
			frame, keep := s.frame(seq, doc)
			if !keep {
				continue
			}
			if err := sink.SubmitDetection(ctx, frame); err != nil {
				if errors.Is(err, scan.ErrSessionClosed) {
					return nil
				}
				return s.exitErr(ctx)
			}
		}
	}
}

func (s *Session) exitErr(ctx context.Context) error {
	if s.Stopped() {
		return nil
	}
	return ctx.Err()
}

// frame filters unrequested symbologies and assigns tracking identities. A
// frame whose codes were all filtered out is dropped.
func (s *Session) frame(seq uint64, doc FrameDoc) (scan.Frame, bool) {
	raw := doc.ScanCodes()
	codes := raw[:0]
	for _, c := range raw {
		if s.symbologies[c.Type] {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 && len(doc.Codes) > 0 {
		return scan.Frame{}, false
	}
	return scan.Frame{
		Seq:   seq,
		At:    s.clock.Now(),
		Codes: s.tracker.Observe(seq, codes),
	}, true
}

// Project returns the current view-space bounds of a tracked code. It
// reports false once the code is no longer tracked.
func (s *Session) Project(c scan.Code) (geom.Rect, bool) {
	raw, ok := s.tracker.Raw(c.ID)
	if !ok {
		return geom.Rect{}, false
	}
	return s.preview.Project(raw)
}

// Stop ends capture. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.logger.Debug("capture stopped")
	})
}

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// View returns the view size the session projects into.
func (s *Session) View() geom.Size {
	return s.preview.View
}
