package chat

import (
	"context"
	"sync"
)

// session identifies one in-flight response stream. At most one session is
// active per Client; starting a new one cancels its predecessor.
//
// Callback delivery and cancellation are serialized on the session mutex:
// once Cancel returns, no further callback fires for this session, and the
// terminal callback (complete or error) fires at most once.
type session struct {
	id     string
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	done      bool
}

// Cancel marks the session cancelled and aborts its request context.
// It blocks until any callback currently in flight has returned.
func (s *session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	s.cancel()
}

func (s *session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// emit invokes a non-terminal callback unless the session has been
// cancelled or finished. Reports whether the callback ran.
func (s *session) emit(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.done {
		return false
	}
	fn()
	return true
}

// finish invokes the terminal callback at most once, and never after
// cancellation.
func (s *session) finish(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.done {
		return
	}
	s.done = true
	fn()
}
