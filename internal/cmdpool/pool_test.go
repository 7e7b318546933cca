package cmdpool

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

type mockBuffer struct {
	id     int
	resets int
}

func (b *mockBuffer) Begin() error               { return nil }
func (b *mockBuffer) Record(native.Command) error { return nil }
func (b *mockBuffer) End() error                 { return nil }
func (b *mockBuffer) Reset()                     { b.resets++ }

type mockAllocator struct {
	next      int
	calls     int
	freed     []native.CommandBuffer
	allocErr  error
	returnNil bool
}

func (a *mockAllocator) AllocateCommandBuffers(n int) ([]native.CommandBuffer, error) {
	a.calls++
	if a.allocErr != nil {
		return nil, a.allocErr
	}
	if a.returnNil {
		return nil, nil
	}
	out := make([]native.CommandBuffer, n)
	for i := range out {
		a.next++
		out[i] = &mockBuffer{id: a.next}
	}
	return out, nil
}

func (a *mockAllocator) FreeCommandBuffers(buffers []native.CommandBuffer) {
	a.freed = append(a.freed, buffers...)
}

func TestPool_AllocatesInChunks(t *testing.T) {
	alloc := &mockAllocator{}
	p := New(alloc, 0)

	cb, err := p.Acquire(0)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if cb == nil {
		t.Fatal("Acquire() returned nil")
	}
	if alloc.calls != 1 {
		t.Errorf("allocator calls = %d, want 1", alloc.calls)
	}
	if p.Allocated() != DefaultChunkSize {
		t.Errorf("Allocated() = %d, want %d", p.Allocated(), DefaultChunkSize)
	}
	if p.Unused() != DefaultChunkSize-1 {
		t.Errorf("Unused() = %d, want %d", p.Unused(), DefaultChunkSize-1)
	}

	for range DefaultChunkSize - 1 {
		if _, err := p.Acquire(0); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	if alloc.calls != 1 {
		t.Errorf("allocator calls after draining chunk = %d, want 1", alloc.calls)
	}
}

func TestPool_ReclaimBeforeAllocate(t *testing.T) {
	alloc := &mockAllocator{}
	p := New(alloc, 1)

	cb, _ := p.Acquire(0)
	p.Release(cb, 5)

	// Not complete yet: a new chunk is allocated.
	other, err := p.Acquire(4)
	if err != nil {
		t.Fatalf("Acquire(4) error = %v", err)
	}
	if other == cb {
		t.Fatal("Acquire(4) returned a buffer tagged 5")
	}
	if alloc.calls != 2 {
		t.Errorf("allocator calls = %d, want 2", alloc.calls)
	}

	// Complete: reuse without allocating.
	again, err := p.Acquire(5)
	if err != nil {
		t.Fatalf("Acquire(5) error = %v", err)
	}
	if again != cb {
		t.Error("Acquire(5) did not reuse the completed buffer")
	}
	if alloc.calls != 2 {
		t.Errorf("allocator calls = %d, want 2", alloc.calls)
	}
	if cb.(*mockBuffer).resets != 1 {
		t.Errorf("resets = %d, want 1", cb.(*mockBuffer).resets)
	}
}

func TestPool_AllocationErrors(t *testing.T) {
	errOOM := errors.New("out of device memory")
	p := New(&mockAllocator{allocErr: errOOM}, 4)
	if _, err := p.Acquire(0); !errors.Is(err, errOOM) {
		t.Errorf("Acquire() error = %v, want %v", err, errOOM)
	}

	p = New(&mockAllocator{returnNil: true}, 4)
	if _, err := p.Acquire(0); !errors.Is(err, ErrNoCommandBuffers) {
		t.Errorf("Acquire() error = %v, want %v", err, ErrNoCommandBuffers)
	}
}

func TestPool_DiscardResets(t *testing.T) {
	p := New(&mockAllocator{}, 1)
	cb, _ := p.Acquire(0)
	p.Discard(cb)
	if p.Unused() != 1 || p.InFlight() != 0 {
		t.Errorf("Unused, InFlight = %d, %d, want 1, 0", p.Unused(), p.InFlight())
	}
	if cb.(*mockBuffer).resets != 1 {
		t.Errorf("resets = %d, want 1", cb.(*mockBuffer).resets)
	}
}

func TestPool_FreeReturnsEverything(t *testing.T) {
	alloc := &mockAllocator{}
	p := New(alloc, 3)
	a, _ := p.Acquire(0)
	b, _ := p.Acquire(0)
	p.Release(a, 1)
	p.Release(b, 2)

	p.Free()
	if len(alloc.freed) != 3 {
		t.Errorf("freed = %d, want 3", len(alloc.freed))
	}
	if p.Unused() != 0 || p.InFlight() != 0 {
		t.Errorf("Unused, InFlight after Free = %d, %d, want 0, 0", p.Unused(), p.InFlight())
	}
}

// TestPool_RandomInterleavingKeepsSetsDisjoint interleaves acquire, release
// and reclaim with an advancing completion value and checks the invariants
// after every step.
func TestPool_RandomInterleavingKeepsSetsDisjoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	alloc := &mockAllocator{}
	p := New(alloc, 3)

	var (
		issued    timeline.Value
		completed timeline.Value
		held      []native.CommandBuffer
	)
	tags := make(map[native.CommandBuffer]timeline.Value)

	for step := range 5000 {
		switch rng.IntN(4) {
		case 0:
			cb, err := p.Acquire(completed)
			if err != nil {
				t.Fatalf("step %d: Acquire() error = %v", step, err)
			}
			if tag, ok := tags[cb]; ok && tag > completed {
				t.Fatalf("step %d: acquired buffer tagged %d with completed %d", step, tag, completed)
			}
			held = append(held, cb)
		case 1:
			if len(held) == 0 {
				continue
			}
			i := rng.IntN(len(held))
			cb := held[i]
			held = append(held[:i], held[i+1:]...)
			issued++
			tags[cb] = issued
			p.Release(cb, issued)
		case 2:
			if completed < issued {
				completed += timeline.Value(rng.IntN(int(issued-completed)) + 1)
			}
		case 3:
			p.Reclaim(completed)
		}
		checkDisjoint(t, step, p, held)
	}
}

func checkDisjoint(t *testing.T, step int, p *Pool, held []native.CommandBuffer) {
	t.Helper()
	where := make(map[native.CommandBuffer]string)
	mark := func(cb native.CommandBuffer, set string) {
		if prev, ok := where[cb]; ok {
			t.Fatalf("step %d: buffer %d in both %s and %s", step, cb.(*mockBuffer).id, prev, set)
		}
		where[cb] = set
	}
	for _, cb := range p.unused {
		mark(cb, "unused")
	}
	for _, e := range p.inFlight {
		mark(e.buffer, "in-flight")
	}
	for _, cb := range held {
		mark(cb, "held")
	}
	if len(where) != p.Allocated() {
		t.Fatalf("step %d: tracked %d buffers, allocated %d", step, len(where), p.Allocated())
	}
}
