package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientGesture MessageType = "client_gesture"
	TypeDeviceEvent   MessageType = "device_event"
	TypeControlState  MessageType = "control_state"
	TypeTranscript    MessageType = "transcript"
	TypeCaptureError  MessageType = "capture_error"
	TypeDeviceCommand MessageType = "device_command"
	TypeSystemEvent   MessageType = "system_event"
)

// Gesture actions carried by client_gesture.
const (
	GestureActivate = "activate"
	GestureCancel   = "cancel"
)

// Recognizer event kinds carried by device_event.
const (
	DeviceKindOpened     = "opened"
	DeviceKindOpenFailed = "open_failed"
	DeviceKindTranscript = "transcript"
	DeviceKindError      = "error"
)

// Recognizer commands carried by device_command.
const (
	CommandOpen     = "open"
	CommandFinalize = "finalize"
	CommandClose    = "close"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientGesture is a user gesture on the voice control: the activate toggle
// or the cancel affordance.
type ClientGesture struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// DeviceEvent reports the client recognizer's lifecycle and results. A
// transcript event with empty text means no speech was detected.
type DeviceEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Code      string      `json:"code,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// ControlState is the rendered voice-control view pushed on every change.
type ControlState struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	State      string      `json:"state"`
	ShowCancel bool        `json:"show_cancel"`
	Busy       bool        `json:"busy"`
	Disabled   bool        `json:"disabled"`
	Notice     string      `json:"notice,omitempty"`
}

// Transcript carries one successfully captured utterance to the conversation
// surface. At most one per capture attempt.
type Transcript struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

type CaptureError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
	Retryable bool        `json:"retryable"`
}

// DeviceCommand instructs the client recognizer.
type DeviceCommand struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientGesture:
		var msg ClientGesture
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_gesture")
		}
		if msg.Action != GestureActivate && msg.Action != GestureCancel {
			return nil, fmt.Errorf("unknown gesture action %q", msg.Action)
		}
		return msg, nil
	case TypeDeviceEvent:
		var msg DeviceEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid device_event")
		}
		switch msg.Kind {
		case DeviceKindOpened, DeviceKindOpenFailed, DeviceKindTranscript, DeviceKindError:
		default:
			return nil, fmt.Errorf("unknown device event kind %q", msg.Kind)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
