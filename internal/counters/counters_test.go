package counters

import (
	"sync"
	"testing"
	"time"
)

func TestRecordOutcome(t *testing.T) {
	t.Parallel()
	c := New(3)
	c.RecordOutcome(true)
	c.RecordOutcome(false)
	c.RecordOutcome(true)

	s := c.Snapshot()
	if s.Sent != 2 || s.Failed != 1 || s.Total != 3 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Processed() != 3 {
		t.Fatalf("processed = %d", s.Processed())
	}
}

func TestETA(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := NewWithClock(4, func() time.Time { return now })

	// No jobs processed yet: no estimate.
	if eta := c.Snapshot().ETA; eta != 0 {
		t.Fatalf("ETA before first job = %v, want 0", eta)
	}

	// 2 jobs in 10s -> 2 remaining at 5s each.
	now = base.Add(10 * time.Second)
	c.RecordOutcome(true)
	c.RecordOutcome(false)
	if eta := c.Snapshot().ETA; eta != 10*time.Second {
		t.Fatalf("ETA = %v, want 10s", eta)
	}

	// All processed: zero remaining.
	c.RecordOutcome(true)
	c.RecordOutcome(true)
	if eta := c.Snapshot().ETA; eta != 0 {
		t.Fatalf("ETA after completion = %v, want 0", eta)
	}
}

func TestConcurrentReaders(t *testing.T) {
	t.Parallel()
	c := New(1000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.Snapshot()
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		c.RecordOutcome(i%2 == 0)
	}
	close(stop)
	wg.Wait()

	s := c.Snapshot()
	if s.Processed() != 1000 {
		t.Fatalf("processed = %d, want 1000", s.Processed())
	}
}
