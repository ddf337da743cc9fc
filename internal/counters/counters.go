// Package counters tracks per-run sent/failed tallies and derives an ETA.
//
// Only the dispatcher goroutine writes; snapshots may be read concurrently
// by the operator surface.
package counters

import (
	"sync"
	"time"
)

type Snapshot struct {
	Sent   int           `json:"sent"`
	Failed int           `json:"failed"`
	Total  int           `json:"total"`
	ETA    time.Duration `json:"eta"`
}

func (s Snapshot) Processed() int { return s.Sent + s.Failed }

type Counters struct {
	mu        sync.RWMutex
	sent      int
	failed    int
	total     int
	startedAt time.Time

	now func() time.Time
}

func New(total int) *Counters {
	return &Counters{total: total, startedAt: time.Now(), now: time.Now}
}

// NewWithClock is for tests that need a deterministic elapsed time.
func NewWithClock(total int, now func() time.Time) *Counters {
	return &Counters{total: total, startedAt: now(), now: now}
}

func (c *Counters) RecordOutcome(success bool) {
	c.mu.Lock()
	if success {
		c.sent++
	} else {
		c.failed++
	}
	c.mu.Unlock()
}

// Snapshot returns the current tallies plus a naive ETA: remaining jobs
// times the average time per processed job. ETA is 0 until the first job
// completes; no estimate beats a wild one.
func (c *Counters) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{Sent: c.sent, Failed: c.failed, Total: c.total}
	processed := c.sent + c.failed
	if processed > 0 {
		elapsed := c.now().Sub(c.startedAt)
		remaining := c.total - processed
		if remaining < 0 {
			remaining = 0
		}
		s.ETA = (time.Duration(remaining) * elapsed / time.Duration(processed)).Round(time.Second)
	}
	return s
}
