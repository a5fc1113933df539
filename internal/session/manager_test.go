package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "web")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Client != "web" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}
	if got.CaptureState != "idle" {
		t.Fatalf("CaptureState = %q, want %q", got.CaptureState, "idle")
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerTracksCaptureActivity(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "web")

	if err := m.SetCaptureState(s.ID, "listening"); err != nil {
		t.Fatalf("SetCaptureState() error = %v", err)
	}
	if err := m.RecordCapture(s.ID); err != nil {
		t.Fatalf("RecordCapture() error = %v", err)
	}
	if err := m.RecordCancel(s.ID); err != nil {
		t.Fatalf("RecordCancel() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CaptureCount != 1 {
		t.Fatalf("CaptureCount = %d, want 1", got.CaptureCount)
	}
	if got.CancelCount != 1 {
		t.Fatalf("CancelCount = %d, want 1", got.CancelCount)
	}
	if got.CaptureState != "idle" {
		t.Fatalf("CaptureState after cancel = %q, want %q", got.CaptureState, "idle")
	}
}

func TestManagerFindByUser(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "web")

	got, err := m.FindByUser("u1")
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if got.ID != s.ID {
		t.Fatalf("FindByUser() id = %q, want %q", got.ID, s.ID)
	}

	if _, err := m.End(s.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := m.FindByUser("u1"); err != ErrNotFound {
		t.Fatalf("FindByUser() after end error = %v, want ErrNotFound", err)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("u1", "web")

	expired := make(chan *Session, 1)
	m.SetExpireHook(func(s *Session) { expired <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
	select {
	case e := <-expired:
		if e.ID != s.ID {
			t.Fatalf("expired session = %q, want %q", e.ID, s.ID)
		}
	default:
		t.Fatalf("expire hook never fired")
	}
}
