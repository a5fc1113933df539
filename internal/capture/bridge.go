package capture

import (
	"context"
	"sync"
	"time"
)

type CommandAction string

const (
	CommandOpen     CommandAction = "open"
	CommandFinalize CommandAction = "finalize"
	CommandClose    CommandAction = "close"
)

// Command instructs the recognizer on the far side of the connection.
type Command struct {
	Action CommandAction
}

// Bridge adapts a recognizer running on the client to the Device contract.
// Open blocks until the client acknowledges that its recognizer started;
// recognizer results arrive through Deliver. The send func must not block.
type Bridge struct {
	send        func(Command) error
	openTimeout time.Duration

	mu      sync.Mutex
	dev     *bridgeDevice
	opening chan openAck
}

type openAck struct {
	ok     bool
	code   string
	detail string
}

func NewBridge(send func(Command) error, openTimeout time.Duration) *Bridge {
	if openTimeout <= 0 {
		openTimeout = 3 * time.Second
	}
	return &Bridge{send: send, openTimeout: openTimeout}
}

func (b *Bridge) Open(ctx context.Context) (Device, <-chan Event, error) {
	b.mu.Lock()
	if b.dev != nil || b.opening != nil {
		b.mu.Unlock()
		return nil, nil, ErrDeviceBusy
	}
	events := make(chan Event, 16)
	dev := &bridgeDevice{bridge: b, events: events}
	ack := make(chan openAck, 1)
	b.dev = dev
	b.opening = ack
	b.mu.Unlock()

	if err := b.send(Command{Action: CommandOpen}); err != nil {
		b.drop(dev)
		return nil, nil, &DeviceError{Code: "client_gone", Detail: err.Error()}
	}

	timer := time.NewTimer(b.openTimeout)
	defer timer.Stop()
	select {
	case a := <-ack:
		if !a.ok {
			b.drop(dev)
			code := a.code
			if code == "" {
				code = "open_failed"
			}
			return nil, nil, &DeviceError{Code: code, Detail: a.detail, Retryable: true}
		}
		return dev, events, nil
	case <-timer.C:
		_ = b.send(Command{Action: CommandClose})
		b.drop(dev)
		return nil, nil, &DeviceError{Code: "open_timeout", Detail: "recognizer did not acknowledge", Retryable: true}
	case <-ctx.Done():
		_ = b.send(Command{Action: CommandClose})
		b.drop(dev)
		return nil, nil, ctx.Err()
	}
}

// Acknowledge resolves a pending Open with the client's opened or open_failed
// answer. Acks with no pending Open are dropped.
func (b *Bridge) Acknowledge(ok bool, code, detail string) {
	b.mu.Lock()
	ack := b.opening
	b.opening = nil
	b.mu.Unlock()
	if ack == nil {
		return
	}
	ack <- openAck{ok: ok, code: code, detail: detail}
}

// Deliver routes a recognizer event from the client to the live attempt.
// Events with no live attempt are dropped.
func (b *Bridge) Deliver(ev Event) {
	b.mu.Lock()
	dev := b.dev
	b.mu.Unlock()
	if dev == nil {
		return
	}
	dev.deliver(ev)
}

func (b *Bridge) drop(dev *bridgeDevice) {
	b.mu.Lock()
	if b.dev == dev {
		b.dev = nil
	}
	b.opening = nil
	b.mu.Unlock()
	dev.discard()
}

type bridgeDevice struct {
	bridge *Bridge
	mu     sync.Mutex
	events chan Event
	closed bool
}

func (d *bridgeDevice) Finalize(_ context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return &DeviceError{Code: "device_closed", Detail: "finalize after close"}
	}
	d.mu.Unlock()
	if err := d.bridge.send(Command{Action: CommandFinalize}); err != nil {
		return &DeviceError{Code: "client_gone", Detail: err.Error()}
	}
	return nil
}

func (d *bridgeDevice) deliver(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
	}
}

func (d *bridgeDevice) Close() error {
	b := d.bridge
	b.mu.Lock()
	if b.dev == d {
		b.dev = nil
	}
	b.mu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	_ = b.send(Command{Action: CommandClose})
	return nil
}

// discard tears the device down without commanding the client.
func (d *bridgeDevice) discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}
