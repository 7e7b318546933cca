// Package discard defers destruction of GPU resources until the device has
// finished the submission that last referenced them.
//
// Producers collect resources they no longer need in a per-context Pool.
// When the context submits work, the pool's contents move into the
// device-wide Orphans, tagged with the submission's timeline value. The
// submission runner destroys orphans whose tag has completed.
package discard

import (
	"sync"

	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

// Destroyer releases native resources.
type Destroyer interface {
	Destroy(r native.Resource)
}

// Pool collects resources discarded by one producer context.
//
// Pool is not safe for concurrent use. It belongs to the goroutine that
// records and submits for that context.
type Pool struct {
	resources []native.Resource
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{resources: make([]native.Resource, 0, 16)}
}

// Discard schedules r for destruction once the next submission of this
// context has completed. Nil resources are ignored.
func (p *Pool) Discard(r native.Resource) {
	if r == nil {
		return
	}
	p.resources = append(p.resources, r)
}

// Len returns the number of pending resources.
func (p *Pool) Len() int {
	return len(p.resources)
}

type orphan struct {
	resource native.Resource
	value    timeline.Value
}

// Orphans is the device-wide holding area for resources awaiting safe
// destruction. Safe for concurrent use.
type Orphans struct {
	mu      sync.Mutex
	entries []orphan

	// swept is the completed value of the last sweep. Entries moved in after
	// a sweep are always tagged above it, so nothing new can be destroyable
	// until the completed value advances.
	swept     timeline.Value
	destroyed int
}

// NewOrphans creates an empty orphan pool.
func NewOrphans() *Orphans {
	return &Orphans{}
}

// MoveData transfers every resource of from into the orphan pool tagged with
// value, leaving from empty. After the call the orphans are no longer
// reachable from the producer.
func (o *Orphans) MoveData(from *Pool, value timeline.Value) int {
	if from == nil || len(from.resources) == 0 {
		return 0
	}
	n := len(from.resources)

	o.mu.Lock()
	for _, r := range from.resources {
		o.entries = append(o.entries, orphan{resource: r, value: value})
	}
	o.mu.Unlock()

	clear(from.resources)
	from.resources = from.resources[:0]
	return n
}

// DestroyDiscarded destroys every orphan tagged <= completed and returns how
// many were destroyed. It returns immediately when completed has not
// advanced since the previous sweep. Native destroy calls happen outside the
// lock.
func (o *Orphans) DestroyDiscarded(d Destroyer, completed timeline.Value) int {
	o.mu.Lock()
	if completed <= o.swept {
		o.mu.Unlock()
		return 0
	}
	o.swept = completed

	var ready []native.Resource
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.value <= completed {
			ready = append(ready, e.resource)
			continue
		}
		kept = append(kept, e)
	}
	clear(o.entries[len(kept):])
	o.entries = kept
	o.destroyed += len(ready)
	o.mu.Unlock()

	for _, r := range ready {
		d.Destroy(r)
	}
	return len(ready)
}

// DestroyAll destroys every orphan regardless of its tag. Only valid once the
// device is idle.
func (o *Orphans) DestroyAll(d Destroyer) int {
	o.mu.Lock()
	all := o.entries
	o.entries = nil
	o.destroyed += len(all)
	o.mu.Unlock()

	for _, e := range all {
		d.Destroy(e.resource)
	}
	return len(all)
}

// Len returns the number of orphans awaiting destruction.
func (o *Orphans) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Destroyed returns the total number of orphans destroyed so far.
func (o *Orphans) Destroyed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.destroyed
}
