package schedule

import (
	"context"
	"errors"
	"time"
)

// Tick bounds the latency of pause/stop taking effect inside a long wait.
const Tick = 500 * time.Millisecond

// ErrStopped is returned by Wait when the gate requested a stop mid-wait.
var ErrStopped = errors.New("wait interrupted: stop requested")

// Gate is the slice of the control signal a wait needs.
type Gate interface {
	IsStopRequested() bool
	BlockWhilePaused()
	StopC() <-chan struct{}
}

// Wait sleeps for d in Tick-sized slices, re-checking the gate between
// slices so pause and stop take effect within one tick rather than after
// the full duration.
//
// The deadline is wall-clock: time spent paused still counts toward it.
// Returns nil once the deadline passes, ErrStopped on stop, or the context
// error on cancellation.
func Wait(ctx context.Context, d time.Duration, gate Gate) error {
	if d <= 0 {
		return nil
	}
	deadline := time.Now().Add(d)
	for {
		if gate != nil {
			if gate.IsStopRequested() {
				return ErrStopped
			}
			gate.BlockWhilePaused()
			if gate.IsStopRequested() {
				return ErrStopped
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		slice := remaining
		if slice > Tick {
			slice = Tick
		}

		tmr := time.NewTimer(slice)
		var stopC <-chan struct{}
		if gate != nil {
			stopC = gate.StopC()
		}
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-stopC:
			if !tmr.Stop() {
				<-tmr.C
			}
			return ErrStopped
		case <-tmr.C:
		}
	}
}
