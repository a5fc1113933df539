package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageGesture(t *testing.T) {
	raw := []byte(`{"type":"client_gesture","session_id":"s1","action":"activate","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	gesture, ok := msg.(ClientGesture)
	if !ok {
		t.Fatalf("message type = %T, want ClientGesture", msg)
	}
	if gesture.SessionID != "s1" || gesture.Action != GestureActivate {
		t.Fatalf("unexpected gesture: %+v", gesture)
	}
	if gesture.TSMs != 123 {
		t.Fatalf("TSMs = %d, want %d", gesture.TSMs, 123)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsUnknownGestureAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_gesture","session_id":"s1","action":"hold"}`))
	if err == nil {
		t.Fatalf("expected validation error for unknown action")
	}
}

func TestParseClientMessageDeviceEvent(t *testing.T) {
	raw := []byte(`{"type":"device_event","session_id":"s1","kind":"transcript","text":"hello there","ts_ms":456}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	ev, ok := msg.(DeviceEvent)
	if !ok {
		t.Fatalf("message type = %T, want DeviceEvent", msg)
	}
	if ev.Kind != DeviceKindTranscript || ev.Text != "hello there" {
		t.Fatalf("unexpected device event: %+v", ev)
	}
}

func TestParseClientMessageDeviceEventAllowsEmptyTranscript(t *testing.T) {
	// empty text is a no-speech result, not a protocol violation
	raw := []byte(`{"type":"device_event","session_id":"s1","kind":"transcript","text":""}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	ev := msg.(DeviceEvent)
	if ev.Text != "" {
		t.Fatalf("text = %q, want empty", ev.Text)
	}
}

func TestParseClientMessageDeviceEventError(t *testing.T) {
	raw := []byte(`{"type":"device_event","session_id":"s1","kind":"error","code":"mic_lost","detail":"track ended","retryable":true}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	ev := msg.(DeviceEvent)
	if ev.Code != "mic_lost" || !ev.Retryable {
		t.Fatalf("unexpected device error event: %+v", ev)
	}
}

func TestParseClientMessageRejectsInvalidDeviceEvent(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"device_event","session_id":"s1","kind":"explode"}`))
	if err == nil {
		t.Fatalf("expected validation error for unknown kind")
	}
	_, err = ParseClientMessage([]byte(`{"type":"device_event","session_id":"","kind":"opened"}`))
	if err == nil {
		t.Fatalf("expected validation error for missing session")
	}
}

func BenchmarkParseClientMessageGesture(b *testing.B) {
	raw := []byte(`{"type":"client_gesture","session_id":"s1","action":"activate","ts_ms":123456}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ClientGesture); !ok {
			b.Fatalf("message type = %T, want ClientGesture", msg)
		}
	}
}
