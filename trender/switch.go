package trender

import "sync"

// Switch is the draw toggle shared between a renderer's controls and [Follow].
// While a Switch is off, frames are consumed but nothing is drawn.
type Switch struct {
	mu      sync.Mutex
	on      bool
	changed chan struct{}
}

// NewSwitch returns a Switch in the given state.
func NewSwitch(on bool) *Switch {
	return &Switch{on: on, changed: make(chan struct{})}
}

// On reports whether drawing is enabled.
func (s *Switch) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Set sets the state, notifying waiters if it changed.
func (s *Switch) Set(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.on == on {
		return
	}
	s.on = on
	close(s.changed)
	s.changed = make(chan struct{})
}

// Toggle flips the state and returns the new value.
func (s *Switch) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = !s.on
	close(s.changed)
	s.changed = make(chan struct{})
	return s.on
}

// Changed returns a channel that is closed on the next state change.
func (s *Switch) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}
