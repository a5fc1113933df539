package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lpetrova/mira/internal/capture"
)

func TestControlHappyPathForwardsTranscriptOnce(t *testing.T) {
	opener := &fakeOpener{onFinalize: emitText("hello there")}
	sink := &countingSink{}
	c := NewControl(opener, sink, SessionConfig{})

	res, _ := c.Activate(context.Background())
	if res != GestureStarted {
		t.Fatalf("Activate() = %q, want %q", res, GestureStarted)
	}
	view := c.Snapshot()
	if view.State != StateListening || !view.ShowCancel {
		t.Fatalf("view while listening = %+v, want listening with cancel affordance", view)
	}

	res, out := c.Activate(context.Background())
	if res != GestureStopped {
		t.Fatalf("Activate() = %q, want %q", res, GestureStopped)
	}
	if !out.Ok || out.Text != "hello there" {
		t.Fatalf("stop outcome = %+v, want Ok with %q", out, "hello there")
	}
	if got := sink.received(); len(got) != 1 || got[0] != "hello there" {
		t.Fatalf("sink received %v, want exactly one %q", got, "hello there")
	}
	if view := c.Snapshot(); view.State != StateIdle {
		t.Fatalf("view after stop = %+v, want idle", view)
	}
}

func TestControlCancelGestureAbandonsCapture(t *testing.T) {
	opener := &fakeOpener{}
	sink := &countingSink{}
	c := NewControl(opener, sink, SessionConfig{})

	if res, _ := c.Activate(context.Background()); res != GestureStarted {
		t.Fatalf("Activate() = %q, want %q", res, GestureStarted)
	}
	if res := c.CancelGesture(); res != GestureCancelled {
		t.Fatalf("CancelGesture() = %q, want %q", res, GestureCancelled)
	}
	if view := c.Snapshot(); view.State != StateIdle {
		t.Fatalf("view after cancel = %+v, want idle", view)
	}
	if n := opener.last.closes.Load(); n != 1 {
		t.Fatalf("device closes = %d, want 1", n)
	}
	if got := sink.received(); len(got) != 0 {
		t.Fatalf("sink received %v, want nothing for a cancelled capture", got)
	}
	if res := c.CancelGesture(); res != GestureIgnored {
		t.Fatalf("CancelGesture() from idle = %q, want %q", res, GestureIgnored)
	}
}

func TestControlOpenFailureShowsOneShotNotice(t *testing.T) {
	opener := &fakeOpener{failErr: &capture.DeviceError{Code: "mic_denied", Detail: "permission refused"}}
	c := NewControl(opener, &countingSink{}, SessionConfig{})

	if res, _ := c.Activate(context.Background()); res != GestureStartFailed {
		t.Fatalf("Activate() = %q, want %q", res, GestureStartFailed)
	}
	view := c.Snapshot()
	if view.State != StateIdle {
		t.Fatalf("view after failed open = %+v, want idle", view)
	}
	if view.Notice == "" {
		t.Fatalf("notice empty, want a one-shot error notice")
	}
	if again := c.Snapshot(); again.Notice != "" {
		t.Fatalf("notice = %q on second read, want cleared", again.Notice)
	}

	opener.setFailErr(nil)
	if res, _ := c.Activate(context.Background()); res != GestureStarted {
		t.Fatalf("Activate() after failure = %q, want %q", res, GestureStarted)
	}
	c.CancelGesture()
}

func TestControlCancelDuringProcessingForwardsNothing(t *testing.T) {
	opener := &fakeOpener{} // finalize acknowledges but never delivers
	sink := &countingSink{}
	c := NewControl(opener, sink, SessionConfig{})

	if res, _ := c.Activate(context.Background()); res != GestureStarted {
		t.Fatalf("Activate() = %q, want %q", res, GestureStarted)
	}
	done := make(chan gestureOutcome, 1)
	go func() {
		res, out := c.Activate(context.Background())
		done <- gestureOutcome{res: res, out: out}
	}()
	waitForState(t, c.Session(), StateProcessing)

	if res := c.CancelGesture(); res != GestureCancelled {
		t.Fatalf("CancelGesture() = %q, want %q", res, GestureCancelled)
	}
	select {
	case g := <-done:
		if g.res != GestureStopped || g.out.Ok {
			t.Fatalf("pending stop = %+v, want stopped with Ok=false", g)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pending stop never resolved after cancel")
	}

	opener.last.emit(capture.Event{Kind: capture.EventTranscript, Text: "too late"})
	time.Sleep(20 * time.Millisecond)
	if got := sink.received(); len(got) != 0 {
		t.Fatalf("sink received %v, want nothing after cancel", got)
	}
}

func TestControlIgnoresActivateWhileProcessing(t *testing.T) {
	opener := &fakeOpener{}
	c := NewControl(opener, &countingSink{}, SessionConfig{})

	if res, _ := c.Activate(context.Background()); res != GestureStarted {
		t.Fatalf("Activate() = %q, want %q", res, GestureStarted)
	}
	done := make(chan gestureOutcome, 1)
	go func() {
		res, out := c.Activate(context.Background())
		done <- gestureOutcome{res: res, out: out}
	}()
	waitForState(t, c.Session(), StateProcessing)

	if res, _ := c.Activate(context.Background()); res != GestureIgnored {
		t.Fatalf("Activate() while processing = %q, want %q (not queued)", res, GestureIgnored)
	}

	c.CancelGesture()
	<-done
}

func TestControlDisabledIgnoresGestures(t *testing.T) {
	opener := &fakeOpener{}
	c := NewControl(opener, &countingSink{}, SessionConfig{})

	c.SetDisabled(true)
	if res, _ := c.Activate(context.Background()); res != GestureIgnored {
		t.Fatalf("Activate() while disabled = %q, want %q", res, GestureIgnored)
	}
	if res := c.CancelGesture(); res != GestureIgnored {
		t.Fatalf("CancelGesture() while disabled = %q, want %q", res, GestureIgnored)
	}
	if opener.openCount() != 0 {
		t.Fatalf("opens = %d, want 0", opener.openCount())
	}

	c.SetDisabled(false)
	if res, _ := c.Activate(context.Background()); res != GestureStarted {
		t.Fatalf("Activate() after enable = %q, want %q", res, GestureStarted)
	}
	c.CancelGesture()
}

func TestControlEmptyTranscriptForwardsNothing(t *testing.T) {
	opener := &fakeOpener{onFinalize: emitText("")}
	sink := &countingSink{}
	c := NewControl(opener, sink, SessionConfig{})

	c.Activate(context.Background())
	res, out := c.Activate(context.Background())
	if res != GestureStopped || out.Ok {
		t.Fatalf("stop = %q %+v, want stopped with Ok=false for silence", res, out)
	}
	if got := sink.received(); len(got) != 0 {
		t.Fatalf("sink received %v, want nothing for an empty capture", got)
	}
}

func TestControlViewFollowsSessionState(t *testing.T) {
	opener := &fakeOpener{onFinalize: emitText("ok then")}
	c := NewControl(opener, &countingSink{}, SessionConfig{})

	var mu sync.Mutex
	var seen []View
	c.SetViewFunc(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v)
	})

	c.Activate(context.Background())
	c.Activate(context.Background())

	mu.Lock()
	defer mu.Unlock()
	var states []State
	for _, v := range seen {
		states = append(states, v.State)
		switch v.State {
		case StateListening:
			if !v.ShowCancel {
				t.Fatalf("listening view = %+v, want ShowCancel", v)
			}
		case StateProcessing:
			if !v.Busy {
				t.Fatalf("processing view = %+v, want Busy", v)
			}
		}
	}
	want := []State{StateListening, StateProcessing, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("view states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("view states = %v, want %v", states, want)
		}
	}
}

func TestControlSinkFailureSetsNotice(t *testing.T) {
	opener := &fakeOpener{onFinalize: emitText("hello")}
	sink := &countingSink{err: errors.New("conversation rejected it")}
	c := NewControl(opener, sink, SessionConfig{})

	c.Activate(context.Background())
	c.Activate(context.Background())

	if view := c.Snapshot(); view.Notice == "" {
		t.Fatalf("notice empty, want delivery failure notice")
	}
}

type gestureOutcome struct {
	res GestureResult
	out Outcome
}

type countingSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *countingSink) HandleTranscript(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func (s *countingSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}
