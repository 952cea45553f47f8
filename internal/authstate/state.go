// Package authstate holds the client side authentication state: a pure
// reducer, a store that serialises transitions, and the async actions that
// call the auth API and dispatch the outcome.
package authstate

import (
	"sync"

	"github.com/storefront-dev/storefront/internal/client"
)

// State is the client's view of the session
type State struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	User            *client.User `json:"user"`
	Error           *string      `json:"error"`
}

// Event is a synchronous state transition
type Event interface {
	event()
}

// AuthStart marks the beginning of an auth request
type AuthStart struct{}

// AuthSuccess carries the user of a successful login or check
type AuthSuccess struct {
	User *client.User
}

// AuthFail resets the session; Message is nil when no error should be shown
type AuthFail struct {
	Message *string
}

// LogoutSuccess resets the session after logout
type LogoutSuccess struct{}

func (AuthStart) event()     {}
func (AuthSuccess) event()   {}
func (AuthFail) event()      {}
func (LogoutSuccess) event() {}

// Reduce applies e to s and returns the new state
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case AuthStart:
		s.IsLoading = true
		s.Error = nil
	case AuthSuccess:
		s.IsLoading = false
		s.User = e.User
		s.IsAuthenticated = true
	case AuthFail:
		s.IsLoading = false
		s.User = nil
		s.IsAuthenticated = false
		s.Error = e.Message
	case LogoutSuccess:
		s.IsLoading = false
		s.User = nil
		s.IsAuthenticated = false
		s.Error = nil
	}
	return s
}

// Store holds the current State. Dispatch and State are safe for concurrent
// use; concurrent actions are not ordered and the last transition wins.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a store in the initial, signed out state
func NewStore() *Store {
	return &Store{listeners: make(map[int]func(State))}
}

// State returns the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies e and notifies subscribers with the resulting state
func (s *Store) Dispatch(e Event) State {
	s.mu.Lock()
	s.state = Reduce(s.state, e)
	next := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Subscribe registers fn to run after every transition. The returned
// function removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
