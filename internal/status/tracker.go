// internal/status/tracker.go
package status

import (
	"sync"

	"github.com/tamzrod/tag-poller/internal/consumer"
)

// Tracker sits in front of a consumer's exception handler and turns the
// failures of each cycle into a health Snapshot.
type Tracker struct {
	next consumer.ExceptionHandler

	mu      sync.Mutex
	pending error
	snap    Snapshot
}

// NewTracker forwards every failure to next (which may be nil).
func NewTracker(next consumer.ExceptionHandler) *Tracker {
	return &Tracker{
		next: next,
		snap: Snapshot{Health: HealthUnknown},
	}
}

// HandleException records the first failure of the current cycle.
func (t *Tracker) HandleException(err error) {
	t.mu.Lock()
	if t.pending == nil {
		t.pending = err
	}
	t.mu.Unlock()

	if t.next != nil {
		t.next.HandleException(err)
	}
}

// TakeError returns and clears the failure recorded since the last call.
func (t *Tracker) TakeError() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.pending
	t.pending = nil
	return err
}

// Observe folds one cycle result into the snapshot.
// changed reports whether any field moved.
func (t *Tracker) Observe(err error) (snap Snapshot, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		// Recovery / OK
		if t.snap.Health != HealthOK {
			t.snap.Health = HealthOK
			changed = true
		}
		// Reset last error code and seconds-in-error when healthy.
		if t.snap.LastErrorCode != 0 {
			t.snap.LastErrorCode = 0
			changed = true
		}
		if t.snap.SecondsInError != 0 {
			t.snap.SecondsInError = 0
			changed = true
		}
		return t.snap, changed
	}

	if t.snap.Health != HealthError {
		t.snap.Health = HealthError
		changed = true
	}
	code := ErrorCode(err)
	if t.snap.LastErrorCode != code {
		t.snap.LastErrorCode = code
		changed = true
	}
	// NOTE: seconds_in_error increments in Tick only.
	return t.snap, changed
}

// Tick advances SecondsInError by one while not OK. Call it at 1 Hz.
func (t *Tracker) Tick() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK || t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
