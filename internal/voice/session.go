package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lpetrova/mira/internal/capture"
)

type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
)

type Transition struct {
	From State
	To   State
}

// Outcome is the result of one capture attempt. Ok is false when the attempt
// was cancelled, heard no speech, or failed; callers must not treat that as
// an error.
type Outcome struct {
	Text string
	Ok   bool
}

var (
	// ErrAlreadyActive is returned by Start outside Idle. Callers may ignore it.
	ErrAlreadyActive = errors.New("capture already active")
	// ErrDeviceUnavailable wraps a device open failure. The session stays Idle.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// Listener observes session activity. Callbacks run synchronously with the
// transition that caused them and must not call back into the session.
type Listener interface {
	StateChanged(t Transition)
	CaptureError(err error)
}

type SessionConfig struct {
	// MaxListen bounds how long an attempt may stay in Listening before it is
	// cancelled. Zero disables the bound.
	MaxListen time.Duration
	// FinalizeTimeout bounds how long Stop waits for the final transcript.
	// Zero waits until the device answers or the attempt is cancelled.
	FinalizeTimeout time.Duration
}

// Session owns one microphone-capture attempt at a time: Idle until Start
// acquires the device, Listening until Stop or Cancel, Processing while the
// device finalizes. Listening and Processing are never simultaneous, and the
// device is released on every exit path.
type Session struct {
	opener   capture.Opener
	listener Listener
	cfg      SessionConfig

	mu          sync.Mutex
	state       State
	opening     bool
	generation  uint64
	device      capture.Device
	pending     chan Outcome
	buffered    *string
	listenTimer *time.Timer
}

func NewSession(opener capture.Opener, listener Listener, cfg SessionConfig) *Session {
	if listener == nil {
		listener = nopListener{}
	}
	return &Session{opener: opener, listener: listener, cfg: cfg, state: StateIdle}
}

func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the capture device and transitions Idle to Listening. Called
// outside Idle it returns ErrAlreadyActive and changes nothing. When the
// device cannot be opened the session stays Idle, the listener sees exactly
// one CaptureError, and a later Start is permitted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle || s.opening {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.opening = true
	s.mu.Unlock()

	dev, events, err := s.opener.Open(ctx)

	s.mu.Lock()
	s.opening = false
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		s.listener.CaptureError(wrapped)
		s.mu.Unlock()
		return wrapped
	}
	s.generation++
	gen := s.generation
	s.device = dev
	s.buffered = nil
	if s.cfg.MaxListen > 0 {
		s.listenTimer = time.AfterFunc(s.cfg.MaxListen, func() { s.expire(gen) })
	}
	s.setState(StateListening)
	s.mu.Unlock()

	go s.pump(gen, events)
	return nil
}

// Stop finishes the current attempt and blocks for its transcript. Only
// meaningful from Listening: anywhere else it resolves immediately with
// Ok false and touches nothing. Exactly one Outcome is produced per
// Listening-to-Processing transition.
func (s *Session) Stop(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return Outcome{}
	}

	// The device endpointed on its own while Listening; resolve from the
	// buffered transcript without waiting.
	if s.buffered != nil {
		out := Outcome{Text: *s.buffered, Ok: *s.buffered != ""}
		s.setState(StateProcessing)
		s.finishLocked(out)
		s.mu.Unlock()
		return out
	}

	if s.listenTimer != nil {
		s.listenTimer.Stop()
		s.listenTimer = nil
	}
	pending := make(chan Outcome, 1)
	s.pending = pending
	dev := s.device
	s.setState(StateProcessing)
	s.mu.Unlock()

	fctx := ctx
	if s.cfg.FinalizeTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.cfg.FinalizeTimeout)
		defer cancel()
	}
	if err := dev.Finalize(fctx); err != nil {
		s.mu.Lock()
		if s.pending == pending {
			s.failLocked(fmt.Errorf("finalize: %w", err))
		}
		s.mu.Unlock()
	}

	select {
	case out := <-pending:
		return out
	case <-fctx.Done():
		s.Cancel()
		select {
		case out := <-pending:
			return out
		default:
			return Outcome{}
		}
	}
}

// Cancel abandons the current attempt: the device is released before Cancel
// returns, a pending Stop resolves with Ok false, and the session is Idle.
// Called from Idle it is a no-op. Idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.finishLocked(Outcome{})
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state != StateListening {
		return
	}
	s.listener.CaptureError(&capture.DeviceError{Code: "listen_timeout", Detail: "listening window elapsed", Retryable: true})
	s.finishLocked(Outcome{})
}

func (s *Session) pump(gen uint64, events <-chan capture.Event) {
	for ev := range events {
		s.handleEvent(gen, ev)
	}
}

func (s *Session) handleEvent(gen uint64, ev capture.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	switch ev.Kind {
	case capture.EventTranscript:
		text := strings.TrimSpace(ev.Text)
		if s.state == StateListening {
			s.buffered = &text
			return
		}
		if s.state == StateProcessing {
			s.finishLocked(Outcome{Text: text, Ok: text != ""})
		}
	case capture.EventError:
		s.failLocked(&capture.DeviceError{Code: ev.Code, Detail: ev.Detail, Retryable: ev.Retryable})
	}
}

// failLocked reports the device failure and tears the attempt down.
func (s *Session) failLocked(err error) {
	s.listener.CaptureError(err)
	s.finishLocked(Outcome{})
}

// finishLocked is the single teardown path: it invalidates in-flight events,
// releases the device, resolves a pending Stop, and returns to Idle.
func (s *Session) finishLocked(out Outcome) {
	s.generation++
	if s.listenTimer != nil {
		s.listenTimer.Stop()
		s.listenTimer = nil
	}
	if s.device != nil {
		_ = s.device.Close()
		s.device = nil
	}
	s.buffered = nil
	if s.pending != nil {
		s.pending <- out
		s.pending = nil
	}
	s.setState(StateIdle)
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.listener.StateChanged(Transition{From: from, To: to})
}

type nopListener struct{}

func (nopListener) StateChanged(Transition) {}
func (nopListener) CaptureError(error)      {}
