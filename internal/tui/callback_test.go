package tui

import "testing"

func TestNonInteractiveCallbackModes(t *testing.T) {
	for _, mode := range []OutputMode{OutputNormal, OutputQuiet, OutputJSON} {
		cb := NewNonInteractiveCallback(mode)
		if cb.Mode() != mode {
			t.Fatalf("Mode() = %v, want %v", cb.Mode(), mode)
		}
		// Must not panic regardless of mode.
		cb.ShowError("title", "message")
		cb.ShowSuccess("ok")
		cb.ShowWarning("title", "message")
	}
}

func TestNoOpWaitTrackerDiscardsEvents(t *testing.T) {
	var tracker NoOpWaitTracker
	tracker.Waiting(42, 0) // must not panic
}
