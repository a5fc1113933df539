package observability

import "testing"

func TestCaptureStageWindowSnapshot(t *testing.T) {
	w := newCaptureStageWindow(8)
	w.Observe("stop_to_transcript", 300)
	w.Observe("stop_to_transcript", 500)
	w.Observe("stop_to_transcript", 700)
	w.ObserveIndicator("no_speech")
	w.ObserveIndicator("no_speech")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "stop_to_transcript" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "stop_to_transcript")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 700 {
		t.Fatalf("LastMS = %.2f, want 700", s.LastMS)
	}
	if s.P50MS != 500 {
		t.Fatalf("P50MS = %.2f, want 500", s.P50MS)
	}
	if s.P95MS <= 500 || s.P95MS > 700 {
		t.Fatalf("P95MS = %.2f, want (500,700]", s.P95MS)
	}
	if s.TargetP95MS != 1500 {
		t.Fatalf("TargetP95MS = %.2f, want 1500", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "no_speech" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "no_speech")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want %d", snap.Indicators[0].Count, 2)
	}
}

func TestCaptureStageWindowWrapsOldSamples(t *testing.T) {
	w := newCaptureStageWindow(4)
	for i := 0; i < 6; i++ {
		w.Observe("activate_to_listening", float64(100+i*10))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4 after wraparound", s.Samples)
	}
	if s.LastMS != 150 {
		t.Fatalf("LastMS = %.2f, want 150", s.LastMS)
	}
	if s.TargetP95MS != 400 {
		t.Fatalf("TargetP95MS = %.2f, want 400", s.TargetP95MS)
	}
}

func TestCaptureStageWindowReset(t *testing.T) {
	w := newCaptureStageWindow(8)
	w.Observe("stop_to_transcript", 100)
	w.ObserveIndicator("cancelled")
	w.Reset()

	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d after reset, want 0", len(snap.Stages))
	}
	if len(snap.Indicators) != 0 {
		t.Fatalf("len(Indicators) = %d after reset, want 0", len(snap.Indicators))
	}
}

func TestCaptureStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := newCaptureStageWindow(8)
	w.Observe("", 100)
	w.Observe("stop_to_transcript", -5)

	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d, want 0", len(snap.Stages))
	}
}
