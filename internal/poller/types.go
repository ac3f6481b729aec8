// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/tag-poller/internal/exchange"
	"github.com/tamzrod/tag-poller/internal/status"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// Exchange is never nil. On failure its body is an empty map.
	Exchange *exchange.Exchange

	// Err is the cycle's failure as seen by the exception handler, or the
	// context error when the wait was interrupted.
	Err         error
	Interrupted bool

	Status        status.Snapshot
	StatusChanged bool
}
