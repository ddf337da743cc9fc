// Package retry runs a single fallible operation with bounded attempts and
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

var ErrStopped = errors.New("retry abandoned: stop requested")

// Stopper exposes the run's stop channel so a backoff sleep can early-exit
// once a stop has been requested.
type Stopper interface {
	StopC() <-chan struct{}
}

// Observer is notified once per attempt; err is nil on success.
type Observer func(attempt int, err error)

// Policy controls attempt count and backoff shape.
//
// Backoff for attempt n (1-based) is Base doubled n-1 times, capped at
// MaxDelay, with +/- Jitter applied.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // 0.2 = 20%
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 15 * time.Second
	}
	return p
}

// Do runs op up to MaxAttempts times, sleeping the backoff delay between
// failed attempts. It returns nil on the first success and the last error
// after exhaustion; it never panics an exhausted retry into the caller.
//
// A NoRetry-wrapped error returns immediately, unwrapped, without consuming
// remaining attempts. The backoff sleep aborts early when ctx is cancelled
// or stop requests a halt.
func (p Policy) Do(ctx context.Context, stop Stopper, op func() error, obs Observer) error {
	p = p.withDefaults()

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op()
		if obs != nil {
			obs(attempt, err)
		}
		if err == nil {
			return nil
		}

		var nr noRetryError
		if errors.As(err, &nr) {
			return nr.err
		}

		last = err
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.delay(attempt)
		if delay <= 0 {
			continue
		}
		tmr := time.NewTimer(delay)
		var stopC <-chan struct{}
		if stop != nil {
			stopC = stop.StopC()
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
	return last
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.Jitter > 0 {
		r := (rand.Float64()*2 - 1) * p.Jitter
		d = time.Duration(float64(d) * (1 + r))
		if d < 0 {
			d = 0
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
