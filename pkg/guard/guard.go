// Package guard provides the mutual-exclusion guard held by every entry
// point that calls out to an external collaborator. A nested call made while
// the guard is held is rejected instead of queued.
package guard

import "errors"

// ErrHeld returned when the guard is already held
var ErrHeld = errors.New("operation already in flight")

// Guard non-blocking mutual exclusion
type Guard struct {
	ch chan struct{}
}

// New new guard
func New() *Guard {
	return &Guard{
		ch: make(chan struct{}, 1),
	}
}

// Enter acquires the guard or fails immediately with ErrHeld.
func (g *Guard) Enter() error {
	select {
	case g.ch <- struct{}{}:
		return nil
	default:
		return ErrHeld
	}
}

// Exit releases the guard. Must be called exactly once per successful Enter,
// on every exit path.
func (g *Guard) Exit() {
	<-g.ch
}
