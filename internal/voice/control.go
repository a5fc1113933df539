package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/lpetrova/mira/internal/capture"
)

// TranscriptSink receives each successfully captured transcript exactly once.
type TranscriptSink interface {
	HandleTranscript(ctx context.Context, text string) error
}

type TranscriptSinkFunc func(ctx context.Context, text string) error

func (f TranscriptSinkFunc) HandleTranscript(ctx context.Context, text string) error {
	return f(ctx, text)
}

// View is the rendered control state, one to one with the session state:
// Idle shows the idle affordance, Listening adds the cancel affordance,
// Processing marks the control busy. Notice is a one-shot error notice,
// cleared once delivered.
type View struct {
	State      State  `json:"state"`
	ShowCancel bool   `json:"show_cancel"`
	Busy       bool   `json:"busy"`
	Disabled   bool   `json:"disabled"`
	Notice     string `json:"notice,omitempty"`
}

type GestureResult string

const (
	GestureStarted     GestureResult = "started"
	GestureStartFailed GestureResult = "start_failed"
	GestureStopped     GestureResult = "stopped"
	GestureCancelled   GestureResult = "cancelled"
	GestureIgnored     GestureResult = "ignored"
)

// Control translates user gestures into session operations and forwards
// finished transcripts to the sink. Gestures that arrive while disabled or
// mid-Processing are ignored, never queued.
type Control struct {
	session *Session
	sink    TranscriptSink

	mu     sync.Mutex
	view   View
	onView func(View)
}

func NewControl(opener capture.Opener, sink TranscriptSink, cfg SessionConfig) *Control {
	c := &Control{sink: sink, view: View{State: StateIdle}}
	c.session = NewSession(opener, c, cfg)
	return c
}

func (c *Control) Session() *Session { return c.session }

// SetViewFunc registers a callback invoked synchronously after every render
// change. It may run while a session callback is in flight and must not block
// or call back into the control.
func (c *Control) SetViewFunc(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onView = fn
}

// Activate is the primary toggle gesture: it starts a capture from Idle and
// stops one from Listening. A stopped attempt that produced a transcript
// forwards it to the sink exactly once; cancelled and empty attempts forward
// nothing.
func (c *Control) Activate(ctx context.Context) (GestureResult, Outcome) {
	c.mu.Lock()
	disabled := c.view.Disabled
	c.mu.Unlock()
	if disabled {
		return GestureIgnored, Outcome{}
	}

	switch c.session.CurrentState() {
	case StateIdle:
		if err := c.session.Start(ctx); err != nil {
			if errors.Is(err, ErrAlreadyActive) {
				return GestureIgnored, Outcome{}
			}
			return GestureStartFailed, Outcome{}
		}
		return GestureStarted, Outcome{}
	case StateListening:
		out := c.session.Stop(ctx)
		if out.Ok {
			c.forward(ctx, out.Text)
		}
		return GestureStopped, out
	default:
		return GestureIgnored, Outcome{}
	}
}

// CancelGesture abandons the current attempt. Ignored outside Listening and
// Processing.
func (c *Control) CancelGesture() GestureResult {
	c.mu.Lock()
	disabled := c.view.Disabled
	c.mu.Unlock()
	if disabled {
		return GestureIgnored
	}
	switch c.session.CurrentState() {
	case StateListening, StateProcessing:
		c.session.Cancel()
		return GestureCancelled
	default:
		return GestureIgnored
	}
}

func (c *Control) SetDisabled(disabled bool) {
	c.mu.Lock()
	if c.view.Disabled == disabled {
		c.mu.Unlock()
		return
	}
	c.view.Disabled = disabled
	view, cb := c.publishLocked()
	c.mu.Unlock()
	if cb != nil {
		cb(view)
	}
}

// Snapshot returns the rendered view. Reading consumes a pending notice.
func (c *Control) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := c.view
	c.view.Notice = ""
	return view
}

// StateChanged implements Listener.
func (c *Control) StateChanged(t Transition) {
	c.mu.Lock()
	c.view.State = t.To
	c.view.ShowCancel = t.To == StateListening
	c.view.Busy = t.To == StateProcessing
	view, cb := c.publishLocked()
	c.mu.Unlock()
	if cb != nil {
		cb(view)
	}
}

// CaptureError implements Listener. The notice rides exactly one view push or
// Snapshot, whichever comes first.
func (c *Control) CaptureError(err error) {
	c.mu.Lock()
	c.view.Notice = noticeFor(err)
	view, cb := c.publishLocked()
	c.mu.Unlock()
	if cb != nil {
		cb(view)
	}
}

func (c *Control) forward(ctx context.Context, text string) {
	if c.sink == nil {
		return
	}
	if err := c.sink.HandleTranscript(ctx, text); err != nil {
		c.mu.Lock()
		c.view.Notice = "Couldn't hand the transcript to the conversation."
		view, cb := c.publishLocked()
		c.mu.Unlock()
		if cb != nil {
			cb(view)
		}
	}
}

// publishLocked snapshots the view for delivery and consumes the notice.
func (c *Control) publishLocked() (View, func(View)) {
	view := c.view
	c.view.Notice = ""
	return view, c.onView
}

func noticeFor(err error) string {
	var devErr *capture.DeviceError
	if errors.As(err, &devErr) {
		switch devErr.Code {
		case "listen_timeout":
			return "Didn't catch that. Tap the mic to try again."
		case "mic_denied":
			return "Microphone access was denied."
		}
	}
	if errors.Is(err, capture.ErrDeviceBusy) {
		return "The microphone is in use by another session."
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		return "The microphone isn't available right now."
	}
	return "Voice capture failed. Tap the mic to try again."
}
