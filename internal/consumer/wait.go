// internal/consumer/wait.go
package consumer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tamzrod/tag-poller/internal/future"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// maxBoundMs is the largest bound that fits a time.Duration.
// Larger bounds wait without a timer.
const maxBoundMs = math.MaxInt64 / int64(time.Millisecond)

// ErrTimeout marks a read that did not resolve within the wait bound.
var ErrTimeout = errors.New("consumer: wait bound elapsed")

type outcomeKind uint8

const (
	outcomeResolved outcomeKind = iota
	outcomeFailed
	outcomeTimedOut
	outcomeInterrupted
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeResolved:
		return "resolved"
	case outcomeFailed:
		return "failed"
	case outcomeTimedOut:
		return "timed_out"
	case outcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

type outcome struct {
	kind outcomeKind
	resp plc.ReadResponse
	err  error
}

// await applies one wait bound to a pending read:
//
//	bound < 0  wait until resolved or ctx is done
//	bound == 0 never wait
//	bound > 0  wait at most bound milliseconds
//
// A bound too large for a time.Duration waits like bound < 0.
// A read that has already resolved wins over a done ctx.
// Timeouts abandon the read; it is never cancelled.
func await(ctx context.Context, pending *future.Future[plc.ReadResponse], boundMs int64) outcome {
	if pending.IsDone() {
		return settle(pending)
	}
	if err := ctx.Err(); err != nil {
		return outcome{kind: outcomeInterrupted, err: err}
	}

	// nil channel: unbounded wait never expires
	var expired <-chan time.Time
	switch {
	case boundMs == 0:
		return timedOut(boundMs)
	case boundMs > 0 && boundMs <= maxBoundMs:
		timer := time.NewTimer(time.Duration(boundMs) * time.Millisecond)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-pending.Done():
		return settle(pending)
	case <-ctx.Done():
		return outcome{kind: outcomeInterrupted, err: ctx.Err()}
	case <-expired:
		return timedOut(boundMs)
	}
}

func settle(pending *future.Future[plc.ReadResponse]) outcome {
	resp, err := pending.Result()
	if err != nil {
		return outcome{kind: outcomeFailed, err: fmt.Errorf("consumer: read failed: %w", err)}
	}
	return outcome{kind: outcomeResolved, resp: resp}
}

func timedOut(boundMs int64) outcome {
	return outcome{kind: outcomeTimedOut, err: fmt.Errorf("%w (%dms)", ErrTimeout, boundMs)}
}
