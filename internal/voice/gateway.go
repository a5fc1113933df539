package voice

import (
	"context"
	"fmt"
	"time"

	"github.com/lpetrova/mira/internal/capture"
	"github.com/lpetrova/mira/internal/host"
	"github.com/lpetrova/mira/internal/observability"
	"github.com/lpetrova/mira/internal/protocol"
	"github.com/lpetrova/mira/internal/session"
)

type GatewayConfig struct {
	// Provider selects where capture devices live: "remote" drives the
	// client's recognizer over the connection, "scripted" uses the local
	// scripted opener.
	Provider        string
	OpenTimeout     time.Duration
	FinalizeTimeout time.Duration
	MaxListen       time.Duration
}

// Gateway runs one voice-control connection: inbound gestures and device
// events in, control state, transcripts, and device commands out. Each
// connection gets its own Control; the gate keeps a user's capture exclusive
// across connections.
type Gateway struct {
	cfg      GatewayConfig
	sessions *session.Manager
	gate     *capture.Gate
	scripted capture.Opener
	host     *host.Client
	metrics  *observability.Metrics
}

func NewGateway(cfg GatewayConfig, sessions *session.Manager, gate *capture.Gate, scripted capture.Opener, hostClient *host.Client, metrics *observability.Metrics) *Gateway {
	if gate == nil {
		gate = capture.NewGate()
	}
	return &Gateway{
		cfg:      cfg,
		sessions: sessions,
		gate:     gate,
		scripted: scripted,
		host:     hostClient,
		metrics:  metrics,
	}
}

// RunConnection consumes inbound until it closes. Writes to outbound never
// block: a saturated queue drops the message and counts it.
func (g *Gateway) RunConnection(ctx context.Context, sess *session.Session, inbound <-chan any, outbound chan<- any) error {
	send := func(cmd capture.Command) error {
		msg := protocol.DeviceCommand{
			Type:      protocol.TypeDeviceCommand,
			SessionID: sess.ID,
			Action:    string(cmd.Action),
		}
		if !g.enqueue(outbound, protocol.TypeDeviceCommand, msg) {
			return fmt.Errorf("outbound queue full")
		}
		return nil
	}

	opener, bridge := g.openerFor(send)
	opener = g.gate.Wrap(gateKey(sess), opener)

	sink := TranscriptSinkFunc(func(ctx context.Context, text string) error {
		now := time.Now()
		g.enqueue(outbound, protocol.TypeTranscript, protocol.Transcript{
			Type:      protocol.TypeTranscript,
			SessionID: sess.ID,
			Text:      text,
			TSMs:      now.UnixMilli(),
		})
		if g.host.Enabled() {
			if err := g.host.Forward(ctx, host.Transcript{
				UserID:     sess.UserID,
				SessionID:  sess.ID,
				Text:       text,
				CapturedAt: now.UTC(),
			}); err != nil {
				return fmt.Errorf("forward transcript: %w", err)
			}
		}
		return nil
	})

	ctl := NewControl(opener, sink, SessionConfig{
		MaxListen:       g.cfg.MaxListen,
		FinalizeTimeout: g.cfg.FinalizeTimeout,
	})
	ctl.SetViewFunc(func(v View) {
		_ = g.sessions.SetCaptureState(sess.ID, string(v.State))
		g.enqueue(outbound, protocol.TypeControlState, controlStateMsg(sess.ID, v))
	})

	// Initial render so the client draws the idle control immediately.
	g.enqueue(outbound, protocol.TypeControlState, controlStateMsg(sess.ID, ctl.Snapshot()))

	// Gestures hand off to a single worker through an unbuffered channel: a
	// gesture arriving while the worker is mid-capture finds no receiver and
	// is dropped, never queued.
	gestures := make(chan protocol.ClientGesture)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case gst, ok := <-gestures:
				if !ok {
					return
				}
				g.handleGesture(ctx, sess, ctl, gst)
			}
		}
	}()

	for msg := range inbound {
		switch m := msg.(type) {
		case protocol.ClientGesture:
			if m.SessionID != sess.ID {
				g.enqueue(outbound, protocol.TypeSystemEvent, protocol.SystemEvent{
					Type:      protocol.TypeSystemEvent,
					SessionID: sess.ID,
					Code:      "session_mismatch",
					Detail:    fmt.Sprintf("gesture for session %s", m.SessionID),
				})
				continue
			}
			_ = g.sessions.Touch(sess.ID)
			select {
			case gestures <- m:
			default:
				g.metrics.SessionEvents.WithLabelValues("gesture_dropped").Inc()
			}
		case protocol.DeviceEvent:
			if m.SessionID != sess.ID {
				continue
			}
			g.handleDeviceEvent(bridge, m, outbound, sess.ID)
		}
	}

	close(gestures)
	<-workerDone

	// The connection owns its control: release any live device before the
	// gate claim outlives the socket.
	ctl.Session().Cancel()
	_ = g.sessions.SetCaptureState(sess.ID, string(StateIdle))
	return nil
}

// openerFor picks the device source for one connection. The returned bridge
// is nil when devices are local and no device events are expected.
func (g *Gateway) openerFor(send func(capture.Command) error) (capture.Opener, *capture.Bridge) {
	if g.cfg.Provider == "scripted" && g.scripted != nil {
		return g.scripted, nil
	}
	b := capture.NewBridge(send, g.cfg.OpenTimeout)
	return b, b
}

func (g *Gateway) handleGesture(ctx context.Context, sess *session.Session, ctl *Control, gst protocol.ClientGesture) {
	switch gst.Action {
	case protocol.GestureActivate:
		start := time.Now()
		res, out := ctl.Activate(ctx)
		switch res {
		case GestureStarted:
			g.metrics.SessionEvents.WithLabelValues("capture_started").Inc()
			g.metrics.ObserveCaptureStage("activate_to_listening", time.Since(start))
		case GestureStopped:
			d := time.Since(start)
			g.metrics.ObserveFinalizeLatency(d)
			g.metrics.ObserveCaptureStage("stop_to_transcript", d)
			if out.Ok {
				_ = g.sessions.RecordCapture(sess.ID)
				g.metrics.CaptureOutcomes.WithLabelValues("transcript").Inc()
			} else {
				g.metrics.CaptureOutcomes.WithLabelValues("no_speech").Inc()
				g.metrics.ObserveCaptureIndicator("no_speech")
			}
		case GestureStartFailed:
			g.metrics.CaptureOutcomes.WithLabelValues("start_failed").Inc()
			g.metrics.ObserveCaptureIndicator("device_error")
		case GestureIgnored:
			g.metrics.SessionEvents.WithLabelValues("gesture_ignored").Inc()
		}
	case protocol.GestureCancel:
		if ctl.CancelGesture() == GestureCancelled {
			_ = g.sessions.RecordCancel(sess.ID)
			g.metrics.CaptureOutcomes.WithLabelValues("cancelled").Inc()
			g.metrics.ObserveCaptureIndicator("cancelled")
		} else {
			g.metrics.SessionEvents.WithLabelValues("gesture_ignored").Inc()
		}
	}
}

// handleDeviceEvent routes recognizer answers from the client into the live
// bridge attempt. Events arriving with no bridge, or no live attempt, drop.
func (g *Gateway) handleDeviceEvent(bridge *capture.Bridge, m protocol.DeviceEvent, outbound chan<- any, sessionID string) {
	if bridge == nil {
		return
	}
	switch m.Kind {
	case protocol.DeviceKindOpened:
		bridge.Acknowledge(true, "", "")
	case protocol.DeviceKindOpenFailed:
		code := m.Code
		if code == "" {
			code = "open_failed"
		}
		g.metrics.DeviceErrors.WithLabelValues(code).Inc()
		bridge.Acknowledge(false, code, m.Detail)
		g.enqueue(outbound, protocol.TypeCaptureError, protocol.CaptureError{
			Type:      protocol.TypeCaptureError,
			SessionID: sessionID,
			Code:      code,
			Detail:    m.Detail,
			Retryable: true,
		})
	case protocol.DeviceKindTranscript:
		bridge.Deliver(capture.Event{
			Kind:      capture.EventTranscript,
			Text:      m.Text,
			Timestamp: m.TSMs,
		})
	case protocol.DeviceKindError:
		code := m.Code
		if code == "" {
			code = "device_error"
		}
		g.metrics.DeviceErrors.WithLabelValues(code).Inc()
		g.metrics.ObserveCaptureIndicator("device_error")
		bridge.Deliver(capture.Event{
			Kind:      capture.EventError,
			Code:      code,
			Detail:    m.Detail,
			Retryable: m.Retryable,
			Timestamp: m.TSMs,
		})
		g.enqueue(outbound, protocol.TypeCaptureError, protocol.CaptureError{
			Type:      protocol.TypeCaptureError,
			SessionID: sessionID,
			Code:      code,
			Detail:    m.Detail,
			Retryable: m.Retryable,
		})
	}
}

func (g *Gateway) enqueue(outbound chan<- any, msgType protocol.MessageType, msg any) bool {
	select {
	case outbound <- msg:
		g.metrics.ObserveOutboundMessage(string(msgType), "queued")
		return true
	default:
		g.metrics.ObserveOutboundMessage(string(msgType), "drop_full")
		return false
	}
}

func controlStateMsg(sessionID string, v View) protocol.ControlState {
	return protocol.ControlState{
		Type:       protocol.TypeControlState,
		SessionID:  sessionID,
		State:      string(v.State),
		ShowCancel: v.ShowCancel,
		Busy:       v.Busy,
		Disabled:   v.Disabled,
		Notice:     v.Notice,
	}
}

func gateKey(sess *session.Session) string {
	if sess.UserID != "" {
		return sess.UserID
	}
	return sess.ID
}
