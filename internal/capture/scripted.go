package capture

import (
	"context"
	"sync"
	"time"
)

// ScriptedConfig controls the scripted capture provider.
type ScriptedConfig struct {
	// Lines are replayed round-robin, one per capture attempt. An empty line
	// simulates an attempt that heard no speech.
	Lines []string
	// FinalizeDelay is how long the device takes to deliver the final
	// transcript after Finalize.
	FinalizeDelay time.Duration
	// EndpointAfter, when positive, makes the device deliver its transcript
	// unprompted that long after Open, as recognizers with their own
	// endpointing do.
	EndpointAfter time.Duration
}

// ScriptedOpener replays a fixed script instead of listening to a microphone.
// It backs local development when no remote recognizer is attached.
type ScriptedOpener struct {
	mu       sync.Mutex
	cfg      ScriptedConfig
	next     int
	failOpen int
	opens    int
}

func NewScriptedOpener(cfg ScriptedConfig) *ScriptedOpener {
	return &ScriptedOpener{cfg: cfg}
}

// FailNextOpen makes the next n Open calls fail as an unavailable device.
func (o *ScriptedOpener) FailNextOpen(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failOpen = n
}

// Opens reports how many attempts acquired a device.
func (o *ScriptedOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

func (o *ScriptedOpener) Open(_ context.Context) (Device, <-chan Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failOpen > 0 {
		o.failOpen--
		return nil, nil, &DeviceError{Code: "device_unavailable", Detail: "scripted open failure", Retryable: true}
	}
	text := ""
	if len(o.cfg.Lines) > 0 {
		text = o.cfg.Lines[o.next%len(o.cfg.Lines)]
		o.next++
	}
	o.opens++
	events := make(chan Event, 8)
	d := &scriptedDevice{events: events, text: text, delay: o.cfg.FinalizeDelay}
	if o.cfg.EndpointAfter > 0 {
		d.timer = time.AfterFunc(o.cfg.EndpointAfter, d.emitTranscript)
	}
	return d, events, nil
}

type scriptedDevice struct {
	mu      sync.Mutex
	events  chan Event
	text    string
	delay   time.Duration
	timer   *time.Timer
	emitted bool
	closed  bool
}

func (d *scriptedDevice) Finalize(_ context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return &DeviceError{Code: "device_closed", Detail: "finalize after close"}
	}
	d.mu.Unlock()
	if d.delay <= 0 {
		d.emitTranscript()
		return nil
	}
	time.AfterFunc(d.delay, d.emitTranscript)
	return nil
}

func (d *scriptedDevice) emitTranscript() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.emitted {
		return
	}
	d.emitted = true
	d.events <- Event{Kind: EventTranscript, Text: d.text, Timestamp: time.Now().UnixMilli()}
}

func (d *scriptedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.events)
	return nil
}
