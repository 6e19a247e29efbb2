package gate

import (
	"fmt"
	"sync"

	"github.com/sait-khanh/gate/h"
)

// Signal is a value that is reactive in the browser. Signals are synced
// with the server right before an action triggers.
//
// Use Bind() to connect a signal to an input, Indicator() to track a
// pending request.
type Signal struct {
	mu      sync.RWMutex
	id      string
	val     any
	changed bool
	err     error
}

// ID returns the signal ID
func (s *Signal) ID() string {
	return s.id
}

// Err returns a signal error or nil if it contains no error.
func (s *Signal) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Bind binds this signal to an input element. When the input changes
// its value the signal updates in real-time in the browser.
//
// Example:
//
//	h.Input(h.Type("text"), username.Bind())
func (s *Signal) Bind() h.H {
	return h.Data("bind", s.id)
}

// Indicator marks the element whose requests toggle this signal: true
// while a request started from it is in flight, false afterwards.
func (s *Signal) Indicator() h.H {
	return h.Data("indicator", s.id)
}

// DisabledWhile disables the element while the signal is truthy.
func (s *Signal) DisabledWhile() h.H {
	return h.Data("attr:disabled", "$"+s.id)
}

// SetValue updates the signal's value and marks it for synchronization with the browser.
func (s *Signal) SetValue(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = v
	s.changed = true
	s.err = nil
}

func (s *Signal) inject(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = v
	s.changed = false
}

// takeChange returns the value to send to the browser if it changed on the
// server since the last sync, and clears the changed mark.
func (s *Signal) takeChange() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.changed {
		return "", false
	}
	s.changed = false
	return fmt.Sprintf("%v", s.val), true
}

// String returns the signal value as a string.
func (s *Signal) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("%v", s.val)
}
