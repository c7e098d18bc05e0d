package core

import "sync"

// BookingSession owns one booking's state. Every mutation goes through
// Reduce under the session lock, so a dispatch is applied in full before
// the next one starts.
type BookingSession struct {
	ID string

	mu    sync.Mutex
	state BookingState
}

func NewBookingSession(id string) *BookingSession {
	return &BookingSession{ID: id, state: NewBookingState()}
}

// Dispatch applies actions in order and returns the resulting snapshot.
func (s *BookingSession) Dispatch(actions ...Action) BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	return s.state.Clone()
}

// Apply derives actions from the current state and dispatches them under a
// single lock acquisition.
func (s *BookingSession) Apply(fn func(BookingState) []Action) BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range fn(s.state.Clone()) {
		s.state = Reduce(s.state, a)
	}
	return s.state.Clone()
}

func (s *BookingSession) State() BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}
