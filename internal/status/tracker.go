// internal/status/tracker.go
package status

// Tracker owns the status snapshot of one instrument.
// Poll outcomes drive health and error code; the 1 Hz tick drives
// seconds in error. Not safe for concurrent use.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records one poll outcome. code is zero for a successful poll.
// It reports whether the snapshot changed.
func (t *Tracker) Observe(code uint16) bool {
	next := t.snap
	if code == 0 {
		// recovery clears the error state
		next = Snapshot{Health: HealthOK}
	} else {
		next.Health = HealthError
		next.LastErrorCode = code
		// seconds in error only move on Tick
	}
	changed := next != t.snap
	t.snap = next
	return changed
}

// Tick advances seconds in error while the instrument is not healthy.
// The counter saturates and never wraps. It reports whether the snapshot changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK || t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}
