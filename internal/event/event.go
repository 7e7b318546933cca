// Package event provides a single-fire event carrying an error.
package event

import "sync"

// Event fires once. Waiters block until Fire is called and then all observe
// the same error. The zero value is not usable; call New.
type Event struct {
	once sync.Once
	done chan struct{}
	err  error
}

// New creates an unfired event.
func New() *Event {
	return &Event{done: make(chan struct{})}
}

// Fire releases all waiters with err. Only the first call has an effect.
func (e *Event) Fire(err error) {
	e.once.Do(func() {
		e.err = err
		close(e.done)
	})
}

// Wait blocks until the event fires and returns its error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Done returns a channel closed when the event fires.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// Fired reports whether Fire has been called.
func (e *Event) Fired() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
