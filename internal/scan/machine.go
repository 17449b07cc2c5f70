package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/scanbox/internal/geom"
)

const (
	// DefaultConfirmDelay is how long a placed code must stay placed before
	// the session commits.
	DefaultConfirmDelay = 600 * time.Millisecond

	defaultInboxSize = 16
)

var (
	// ErrSessionClosed is returned for submissions after the session reached
	// a terminal state.
	ErrSessionClosed = errors.New("scan session closed")

	// ErrNilSession is returned by New when no capture session is configured.
	ErrNilSession = errors.New("capture session must not be nil")
)

// Session is the capture collaborator the machine drives.
type Session interface {
	// Project returns the current view-space bounds of a tracked code.
	// It reports false when the geometry cannot be projected.
	Project(c Code) (geom.Rect, bool)

	// Stop ends capture. It must be safe to call more than once.
	Stop()
}

// Config configures a new Machine.
type Config struct {
	Rules        Rules
	ConfirmDelay time.Duration // default 600ms
	Session      Session
	Clock        Clock        // default SystemClock
	Logger       *slog.Logger // default slog.Default
	Display      Display      // optional feedback observer
	InboxSize    int          // default 16

	// OnComplete is called once with "" (cancelled) or "{type}:{text}".
	OnComplete func(string)
}

type message interface{ isMessage() }

type frameMsg struct{ frame Frame }

type confirmMsg struct {
	epoch uint64
	timer uint64
	code  Code
}

type cancelMsg struct{}

func (frameMsg) isMessage()   {}
func (confirmMsg) isMessage() {}
func (cancelMsg) isMessage()  {}

// Machine is a single scan session. All state changes happen on the
// goroutine running Run; the exported methods only enqueue messages.
type Machine struct {
	id         string
	rules      Rules
	delay      time.Duration
	session    Session
	clock      Clock
	logger     *slog.Logger
	display    Display
	onComplete func(string)

	inbox chan message
	done  chan struct{}
	state atomic.Int32

	// Owned by the Run goroutine.
	epoch     uint64
	nextTimer uint64
	pending   map[uint64]Timer
	feedback  Feedback

	mu      sync.Mutex
	outcome Outcome
}

// New creates a machine in the Scanning state. Call Run to start processing.
func New(cfg Config) (*Machine, error) {
	if cfg.Session == nil {
		return nil, ErrNilSession
	}
	if cfg.Rules.Threshold <= 0 {
		cfg.Rules.Threshold = DefaultOverlapThreshold
	}
	if len(cfg.Rules.AcceptedLengths) == 0 {
		cfg.Rules.AcceptedLengths = DefaultAcceptedLengths()
	}
	if cfg.ConfirmDelay < 0 {
		return nil, fmt.Errorf("confirm delay must not be negative: %s", cfg.ConfirmDelay)
	}
	if cfg.ConfirmDelay == 0 {
		cfg.ConfirmDelay = DefaultConfirmDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}

	id := uuid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		id:         id,
		rules:      cfg.Rules,
		delay:      cfg.ConfirmDelay,
		session:    cfg.Session,
		clock:      cfg.Clock,
		logger:     logger.With("session_id", id),
		display:    cfg.Display,
		onComplete: cfg.OnComplete,
		inbox:      make(chan message, cfg.InboxSize),
		done:       make(chan struct{}),
		pending:    make(map[uint64]Timer),
		feedback:   InitialFeedback(),
	}, nil
}

// ID returns the session identifier used in logs.
func (m *Machine) ID() string { return m.id }

// State returns the current lifecycle state.
func (m *Machine) State() State { return State(m.state.Load()) }

// Done is closed once the session reaches a terminal state.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Outcome returns the completion. It is only meaningful after Done is closed.
func (m *Machine) Outcome() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome
}

// Wait blocks until the session completes or ctx is done.
func (m *Machine) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.done:
		return m.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// SubmitDetection enqueues a frame for evaluation.
func (m *Machine) SubmitDetection(ctx context.Context, f Frame) error {
	select {
	case <-m.done:
		return ErrSessionClosed
	default:
	}
	select {
	case m.inbox <- frameMsg{frame: f}:
		return nil
	case <-m.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel asks the session to stop without a result. It is a no-op once the
// session is terminal.
func (m *Machine) Cancel() {
	m.post(cancelMsg{})
}

func (m *Machine) post(msg message) {
	select {
	case m.inbox <- msg:
	case <-m.done:
	}
}

// Run processes messages until the session reaches a terminal state or ctx
// is done. Cancelling ctx cancels the session.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Debug("scan session started",
		"target", m.rules.Target, "threshold", m.rules.Threshold, "confirm_delay", m.delay)
	m.show(m.feedback)

	for {
		select {
		case <-ctx.Done():
			if !m.State().Terminal() {
				m.finish(Outcome{State: Cancelled})
			}
			return ctx.Err()
		case <-m.done:
			return nil
		case msg := <-m.inbox:
			m.handle(msg)
			if m.State().Terminal() {
				return nil
			}
		}
	}
}

func (m *Machine) handle(msg message) {
	switch msg := msg.(type) {
	case frameMsg:
		m.handleFrame(msg.frame)
	case confirmMsg:
		m.handleConfirm(msg)
	case cancelMsg:
		m.logger.Info("scan cancelled")
		m.finish(Outcome{State: Cancelled})
	}
}

func (m *Machine) handleFrame(f Frame) {
	if len(f.Codes) == 0 {
		return
	}
	code := f.Codes[0]

	if m.feedback.Indicator != Neutral {
		m.feedback.Indicator = Neutral
		m.show(m.feedback)
	}

	var bounds geom.Rect
	projected := false
	if code.Decoded {
		bounds, projected = m.session.Project(code)
	}

	ev := m.rules.Evaluate(code, bounds, projected)
	if ev.Result.Classification == ValidAndPlaced {
		m.scheduleConfirm(code)
	}
	m.feedback = ev.Feedback
	m.show(ev.Feedback)

	m.logger.Debug("detection evaluated",
		"seq", f.Seq,
		"code_type", code.Type,
		"classification", ev.Result.Classification,
		"overlap_ratio", ev.Result.OverlapRatio)
}

func (m *Machine) scheduleConfirm(code Code) {
	m.nextTimer++
	msg := confirmMsg{epoch: m.epoch, timer: m.nextTimer, code: code}
	m.pending[msg.timer] = m.clock.AfterFunc(m.delay, func() {
		m.post(msg)
	})
}

func (m *Machine) handleConfirm(msg confirmMsg) {
	delete(m.pending, msg.timer)
	if msg.epoch != m.epoch || m.State().Terminal() {
		return
	}

	bounds, ok := m.session.Project(msg.code)
	if !ok {
		m.logger.Debug("confirmation skipped, code no longer projectable", "code_type", msg.code.Type)
		return
	}
	ratio, placed := m.rules.Placed(bounds)
	if !placed {
		m.logger.Debug("confirmation failed, code moved", "code_type", msg.code.Type, "overlap_ratio", ratio)
		return
	}

	m.logger.Info("scan committed", "code_type", msg.code.Type, "overlap_ratio", ratio)
	m.finish(Outcome{State: Committed, Type: msg.code.Type, Text: msg.code.Text})
}

// finish performs the terminal transition: it invalidates pending
// confirmations, stops capture, and publishes the outcome.
func (m *Machine) finish(o Outcome) {
	m.epoch++
	for id, t := range m.pending {
		t.Stop()
		delete(m.pending, id)
	}
	m.session.Stop()

	m.mu.Lock()
	m.outcome = o
	m.mu.Unlock()
	m.state.Store(int32(o.State))
	close(m.done)

	if m.onComplete != nil {
		m.onComplete(o.String())
	}
}

func (m *Machine) show(fb Feedback) {
	if m.display != nil {
		m.display.Show(fb)
	}
}
