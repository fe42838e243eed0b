// internal/status/tracker_test.go
package status

import "testing"

func TestTrackerStartsUnknown(t *testing.T) {
	tr := NewTracker()
	if got := tr.Snapshot(); got.Health != HealthUnknown || got.LastErrorCode != 0 || got.SecondsInError != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", got)
	}
}

func TestTrackerErrorThenRecovery(t *testing.T) {
	tr := NewTracker()

	if !tr.Observe(2) {
		t.Fatalf("first error should change the snapshot")
	}
	if tr.Observe(2) {
		t.Fatalf("same error twice should not change the snapshot")
	}
	for i := 0; i < 3; i++ {
		if !tr.Tick() {
			t.Fatalf("tick %d should advance seconds in error", i)
		}
	}

	got := tr.Snapshot()
	if got.Health != HealthError || got.LastErrorCode != 2 || got.SecondsInError != 3 {
		t.Fatalf("unexpected error snapshot: %+v", got)
	}

	// a different failure kind keeps counting
	tr.Observe(3)
	if got := tr.Snapshot(); got.LastErrorCode != 3 || got.SecondsInError != 3 {
		t.Fatalf("error code change should keep seconds: %+v", got)
	}

	if !tr.Observe(0) {
		t.Fatalf("recovery should change the snapshot")
	}
	if got := tr.Snapshot(); got != (Snapshot{Health: HealthOK}) {
		t.Fatalf("recovery should clear error state: %+v", got)
	}
	if tr.Tick() {
		t.Fatalf("tick while healthy should not change anything")
	}
}

func TestTrackerTicksWhileUnknown(t *testing.T) {
	tr := NewTracker()
	if !tr.Tick() {
		t.Fatalf("unknown is not healthy; tick should count")
	}
	if tr.Snapshot().SecondsInError != 1 {
		t.Fatalf("expected 1 second, got %d", tr.Snapshot().SecondsInError)
	}
}

func TestTrackerSecondsSaturate(t *testing.T) {
	tr := NewTracker()
	tr.Observe(1)
	tr.snap.SecondsInError = MaxSecondsInError - 1

	if !tr.Tick() {
		t.Fatalf("tick below max should count")
	}
	if tr.Tick() {
		t.Fatalf("tick at max should not wrap")
	}
	if tr.Snapshot().SecondsInError != MaxSecondsInError {
		t.Fatalf("expected saturation at %d, got %d", MaxSecondsInError, tr.Snapshot().SecondsInError)
	}
}
