// Package timeline provides the submission timeline: a monotonically
// increasing 64-bit counter identifying device submissions, and the
// device-confirmed completion value used to decide when work has finished.
//
// A value N being complete implies every submission with a value <= N is
// complete, because values are issued in submission order.
package timeline

import (
	"fmt"
	"sync/atomic"
)

// Value is a logical submission generation. Zero means "nothing to wait for".
type Value uint64

// Waiter blocks until the device timeline reaches a value.
type Waiter interface {
	WaitValue(value uint64) error
}

// Counter tracks issued and completed timeline values.
//
// Increment is expected to be called under the owner's submission lock so
// that the order of issued values equals the order of submissions. All other
// methods are safe for concurrent use.
type Counter struct {
	issued    atomic.Uint64
	completed atomic.Uint64
	waiter    Waiter
}

// NewCounter creates a counter that waits on w.
func NewCounter(w Waiter) *Counter {
	return &Counter{waiter: w}
}

// Increment issues and returns the next value.
func (c *Counter) Increment() Value {
	return Value(c.issued.Add(1))
}

// Current returns the last issued value, which is not necessarily complete.
func (c *Counter) Current() Value {
	return Value(c.issued.Load())
}

// Pending returns the value the next Increment will issue.
func (c *Counter) Pending() Value {
	return Value(c.issued.Load() + 1)
}

// Completed returns the highest value confirmed complete so far.
func (c *Counter) Completed() Value {
	return Value(c.completed.Load())
}

// Observe records that the device reached v. Lower values are ignored.
// Returns true if the completed value advanced.
func (c *Counter) Observe(v Value) bool {
	for {
		cur := c.completed.Load()
		if uint64(v) <= cur {
			return false
		}
		if c.completed.CompareAndSwap(cur, uint64(v)) {
			return true
		}
	}
}

// IsComplete reports whether v is known to be complete without touching the
// device.
func (c *Counter) IsComplete(v Value) bool {
	return v == 0 || uint64(v) <= c.completed.Load()
}

// WaitFor blocks until v is complete. It returns immediately for zero and for
// values already observed complete, so repeated waits are free.
func (c *Counter) WaitFor(v Value) error {
	if c.IsComplete(v) {
		return nil
	}
	if err := c.waiter.WaitValue(uint64(v)); err != nil {
		return fmt.Errorf("timeline: wait for %d: %w", v, err)
	}
	c.Observe(v)
	return nil
}
