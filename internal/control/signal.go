// Package control holds the cooperative pause/stop primitive shared between
// the operator surface and the dispatcher worker.
//
// The operator goroutine writes, the worker only reads; a Signal is scoped
// to one run and a new run gets a fresh one, so RequestStop is terminal.
package control

import "sync"

type Signal struct {
	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
	stopC   chan struct{}
}

func NewSignal() *Signal {
	s := &Signal{stopC: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Signal) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *Signal) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// RequestStop is terminal for the run: it is never cleared.
// It also wakes pause waiters so a paused run can observe the stop.
func (s *Signal) RequestStop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopC)
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Signal) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Signal) IsStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// StopC is closed once a stop has been requested; it never reopens.
// Waits select on it so stop takes effect mid-sleep.
func (s *Signal) StopC() <-chan struct{} { return s.stopC }

// BlockWhilePaused suspends the caller until Resume (or RequestStop).
// Returns immediately if not currently paused.
func (s *Signal) BlockWhilePaused() {
	s.mu.Lock()
	for s.paused && !s.stopped {
		s.cond.Wait()
	}
	s.mu.Unlock()
}
