package timers

import (
	"sync"
	"time"
)

// Name identifies a logical timer slot.
type Name string

// Timer names used by the connection lifecycle.
const (
	// Ping is the single-shot pong-wait timeout.
	Ping Name = "ping"

	// Heartbeat is the repeating liveness probe interval.
	Heartbeat Name = "heartbeat"

	// KeepAlive is the overall inactivity limit.
	KeepAlive Name = "keep-alive"

	// Retry is the pending reconnection delay.
	Retry Name = "retry"
)

// handle is a single armed timer.
type handle struct {
	timer *time.Timer

	// repeating timers re-arm themselves until stopped
	repeat bool
	stopCh chan struct{}
}

// Store holds at most one active timer per name.
type Store struct {
	mu      sync.Mutex
	handles map[Name]*handle
}

// NewStore creates an empty timer store.
func NewStore() *Store {
	return &Store{
		handles: make(map[Name]*handle),
	}
}

// Arm schedules fn to run once after d, replacing any timer already
// armed under the same name.
func (s *Store) Arm(name Name, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked(name)
	h := &handle{}
	h.timer = time.AfterFunc(d, func() {
		s.expire(name, h)
		fn()
	})
	s.handles[name] = h
}

// ArmRepeat schedules fn to run every d until the name is disarmed,
// replacing any timer already armed under the same name.
func (s *Store) ArmRepeat(name Name, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked(name)
	h := &handle{repeat: true, stopCh: make(chan struct{})}
	var rearm func()
	rearm = func() {
		select {
		case <-h.stopCh:
			return
		default:
		}
		s.mu.Lock()
		// Only re-arm while this handle still owns the slot.
		if s.handles[name] == h {
			h.timer = time.AfterFunc(d, func() {
				fn()
				rearm()
			})
		}
		s.mu.Unlock()
	}
	h.timer = time.AfterFunc(d, func() {
		fn()
		rearm()
	})
	s.handles[name] = h
}

// Disarm cancels the timer armed under name, if any.
// Returns true if a timer was cancelled.
func (s *Store) Disarm(name Name) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disarmLocked(name)
}

// DisarmAll cancels every armed timer.
func (s *Store) DisarmAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.handles {
		s.disarmLocked(name)
	}
}

// Active reports whether a timer is currently armed under name.
func (s *Store) Active(name Name) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[name]
	return ok
}

// Count returns the number of armed timers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// disarmLocked cancels and removes the handle for name.
// Caller must hold s.mu.
func (s *Store) disarmLocked(name Name) bool {
	h, ok := s.handles[name]
	if !ok {
		return false
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.repeat {
		close(h.stopCh)
	}
	delete(s.handles, name)
	return true
}

// expire removes a single-shot handle once it has fired, unless the
// slot has already been re-armed with a newer timer.
func (s *Store) expire(name Name, h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[name] == h {
		delete(s.handles, name)
	}
}
