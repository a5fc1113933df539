package capture

import (
	"context"
	"errors"
)

type EventKind string

const (
	EventTranscript EventKind = "transcript"
	EventError      EventKind = "error"
)

// Event is emitted by a live capture attempt. A transcript event with empty
// Text means the device heard no speech, which is a valid result.
type Event struct {
	Kind      EventKind
	Text      string
	Code      string
	Detail    string
	Retryable bool
	Timestamp int64
}

// Device is one live microphone-capture attempt. Close must be idempotent and
// must release the underlying microphone before returning.
type Device interface {
	Finalize(ctx context.Context) error
	Close() error
}

type Opener interface {
	Open(ctx context.Context) (Device, <-chan Event, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Device, <-chan Event, error)

func (f OpenerFunc) Open(ctx context.Context) (Device, <-chan Event, error) { return f(ctx) }

// ErrDeviceBusy is returned by a gated Open while another attempt holds the device.
var ErrDeviceBusy = errors.New("capture device busy")

// DeviceError carries the device-reported failure code alongside the message.
type DeviceError struct {
	Code      string
	Detail    string
	Retryable bool
}

func (e *DeviceError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}
