// Package scheduler owns the per-alert escalation timers. It holds only
// alert ids and timers, never alert state: a fired timer invokes the
// callback the engine armed it with, and the engine decides whether the
// alert still needs escalation.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler manages one timer per alert id.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New constructs a scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Arm starts (or restarts) the timer for alertID. When the duration
// elapses the timer is removed and onFire runs on the timer goroutine;
// onFire must tolerate racing with a concurrent Cancel.
func (s *Scheduler) Arm(alertID string, d time.Duration, onFire func()) {
	if s == nil || alertID == "" || onFire == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if existing, ok := s.timers[alertID]; ok {
		existing.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		// A re-arm may have replaced this timer between firing and
		// taking the lock; only the current timer owns the map entry.
		if s.timers[alertID] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, alertID)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		onFire()
	})
	s.timers[alertID] = t
}

// Cancel stops the timer for alertID. It is idempotent and a no-op for
// unknown ids.
func (s *Scheduler) Cancel(alertID string) {
	if s == nil || alertID == "" {
		return
	}
	s.mu.Lock()
	timer := s.timers[alertID]
	delete(s.timers, alertID)
	s.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// Armed reports whether a timer is currently outstanding for alertID.
func (s *Scheduler) Armed(alertID string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	_, ok := s.timers[alertID]
	s.mu.Unlock()
	return ok
}

// Close cancels all outstanding timers. The scheduler accepts no new
// timers afterwards.
func (s *Scheduler) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[string]*time.Timer)
	s.closed = true
	s.mu.Unlock()
	for _, timer := range timers {
		if timer != nil {
			timer.Stop()
		}
	}
}
