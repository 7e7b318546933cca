// Package cmdpool pools native command buffers and tracks which of them the
// GPU may still be executing.
package cmdpool

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

// DefaultChunkSize is the number of command buffers allocated at once when
// the pool runs dry.
const DefaultChunkSize = 10

// ErrNoCommandBuffers is returned when the device allocated nothing.
var ErrNoCommandBuffers = errors.New("cmdpool: device returned no command buffers")

// Allocator is the subset of native.Device used by the pool.
type Allocator interface {
	AllocateCommandBuffers(n int) ([]native.CommandBuffer, error)
	FreeCommandBuffers(buffers []native.CommandBuffer)
}

type inFlight struct {
	buffer native.CommandBuffer
	value  timeline.Value
}

// Pool holds two disjoint sets of command buffers: unused buffers that can be
// recorded into immediately, and in-flight buffers tagged with the timeline
// value of the submission that last used them.
//
// A tagged buffer moves back to the unused set only once the completed value
// reaches its tag.
//
// Pool is not safe for concurrent use; it is owned by the submission runner.
type Pool struct {
	alloc     Allocator
	chunkSize int

	unused   []native.CommandBuffer
	inFlight []inFlight

	allocated int
}

// New creates an empty pool. chunkSize <= 0 selects DefaultChunkSize.
func New(alloc Allocator, chunkSize int) *Pool {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pool{alloc: alloc, chunkSize: chunkSize}
}

// Acquire returns a buffer ready for recording. It prefers unused buffers,
// then reclaims in-flight buffers finished by completed, and finally
// allocates a new chunk.
func (p *Pool) Acquire(completed timeline.Value) (native.CommandBuffer, error) {
	if len(p.unused) == 0 {
		p.Reclaim(completed)
	}
	if len(p.unused) == 0 {
		buffers, err := p.alloc.AllocateCommandBuffers(p.chunkSize)
		if err != nil {
			return nil, fmt.Errorf("cmdpool: allocate %d command buffers: %w", p.chunkSize, err)
		}
		if len(buffers) == 0 {
			return nil, ErrNoCommandBuffers
		}
		p.allocated += len(buffers)
		p.unused = append(p.unused, buffers...)
	}

	last := len(p.unused) - 1
	cb := p.unused[last]
	p.unused[last] = nil
	p.unused = p.unused[:last]
	return cb, nil
}

// Release tags cb with the submission value and marks it in-flight.
func (p *Pool) Release(cb native.CommandBuffer, value timeline.Value) {
	p.inFlight = append(p.inFlight, inFlight{buffer: cb, value: value})
}

// Discard returns a buffer that was never submitted straight to the unused
// set after resetting it.
func (p *Pool) Discard(cb native.CommandBuffer) {
	cb.Reset()
	p.unused = append(p.unused, cb)
}

// Reclaim moves every in-flight buffer tagged <= completed to the unused set
// and returns how many moved. Reclaimed buffers are reset.
func (p *Pool) Reclaim(completed timeline.Value) int {
	kept := p.inFlight[:0]
	moved := 0
	for _, e := range p.inFlight {
		if e.value <= completed {
			e.buffer.Reset()
			p.unused = append(p.unused, e.buffer)
			moved++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(p.inFlight); i++ {
		p.inFlight[i] = inFlight{}
	}
	p.inFlight = kept
	return moved
}

// Free returns every buffer to the device. The caller must have waited for
// the device to go idle.
func (p *Pool) Free() {
	all := make([]native.CommandBuffer, 0, len(p.unused)+len(p.inFlight))
	all = append(all, p.unused...)
	for _, e := range p.inFlight {
		all = append(all, e.buffer)
	}
	p.unused = nil
	p.inFlight = nil
	if len(all) > 0 {
		p.alloc.FreeCommandBuffers(all)
	}
}

// Unused returns the number of immediately reusable buffers.
func (p *Pool) Unused() int { return len(p.unused) }

// InFlight returns the number of buffers awaiting completion.
func (p *Pool) InFlight() int { return len(p.inFlight) }

// Allocated returns the total number of buffers allocated from the device.
func (p *Pool) Allocated() int { return p.allocated }
