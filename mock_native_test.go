package rendergraph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/rendergraph/native"
)

// mockCommandBuffer records marker labels.
type mockCommandBuffer struct {
	owner     *mockNative
	id        int
	recording bool
	ended     bool
	labels    []string
}

func (b *mockCommandBuffer) Begin() error {
	if b.recording {
		return errors.New("mock: begin while recording")
	}
	b.recording = true
	b.ended = false
	return nil
}

func (b *mockCommandBuffer) Record(cmd native.Command) error {
	if !b.recording {
		return errors.New("mock: record outside recording")
	}
	if m, ok := cmd.(native.Marker); ok {
		b.labels = append(b.labels, m.Label)
	} else {
		b.labels = append(b.labels, cmd.CommandName())
	}
	return nil
}

func (b *mockCommandBuffer) End() error {
	if !b.recording {
		return errors.New("mock: end outside recording")
	}
	b.recording = false
	b.ended = true
	return nil
}

func (b *mockCommandBuffer) Reset() {
	if b.owner != nil {
		b.owner.event(fmt.Sprintf("reset:%d", b.id))
	}
	b.recording = false
	b.ended = false
	b.labels = nil
}

// mockSubmit is a snapshot of one native submission.
type mockSubmit struct {
	value           uint64
	buffers         [][]string
	waitSemaphore   native.Semaphore
	waitStage       native.PipelineStage
	signalSemaphore native.Semaphore
	signalFence     native.Fence
}

func (s mockSubmit) labels() []string {
	var out []string
	for _, b := range s.buffers {
		out = append(out, b...)
	}
	return out
}

type mockSemaphore string

func (s mockSemaphore) SemaphoreLabel() string { return string(s) }

type mockFence string

func (f mockFence) FenceLabel() string { return string(f) }

type mockResource struct {
	label string
}

func (r *mockResource) ResourceLabel() string { return r.label }

// mockNative is a test double for native.Device. The device timeline only
// advances through complete, or on every submit when autoComplete is set.
type mockNative struct {
	mu   sync.Mutex
	cond *sync.Cond

	autoComplete bool
	completed    uint64
	lastSubmit   uint64

	nextID    int
	allocated int
	freed     int
	submits   []mockSubmit
	destroyed []native.Resource

	waitCalls     int
	waitIdleCalls int

	submitErr error
	allocErr  error

	// acceptErr makes Submit take the work and then fail.
	acceptErr error

	// events logs resets and idle waits in call order.
	events []string

	// submitHook runs inside Submit before it returns, without the lock.
	submitHook func(info *native.SubmitInfo)
}

func newMockNative(autoComplete bool) *mockNative {
	m := &mockNative{autoComplete: autoComplete}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mockNative) AllocateCommandBuffers(n int) ([]native.CommandBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allocErr != nil {
		return nil, m.allocErr
	}
	out := make([]native.CommandBuffer, n)
	for i := range out {
		m.nextID++
		out[i] = &mockCommandBuffer{owner: m, id: m.nextID}
	}
	m.allocated += n
	return out, nil
}

func (m *mockNative) FreeCommandBuffers(buffers []native.CommandBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freed += len(buffers)
}

func (m *mockNative) Submit(info *native.SubmitInfo) error {
	if m.submitHook != nil {
		m.submitHook(info)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	if info.TimelineValue <= m.lastSubmit {
		return fmt.Errorf("mock: timeline value %d not above %d", info.TimelineValue, m.lastSubmit)
	}

	snap := mockSubmit{
		value:           info.TimelineValue,
		waitSemaphore:   info.WaitSemaphore,
		waitStage:       info.WaitStage,
		signalSemaphore: info.SignalSemaphore,
		signalFence:     info.SignalFence,
	}
	for _, cb := range info.CommandBuffers {
		mcb := cb.(*mockCommandBuffer)
		if !mcb.ended {
			return fmt.Errorf("mock: command buffer %d submitted while not ended", mcb.id)
		}
		snap.buffers = append(snap.buffers, append([]string(nil), mcb.labels...))
	}
	m.submits = append(m.submits, snap)
	m.lastSubmit = info.TimelineValue
	if m.autoComplete {
		m.completed = info.TimelineValue
		m.cond.Broadcast()
	}
	return m.acceptErr
}

func (m *mockNative) CompletedValue() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed, nil
}

func (m *mockNative) WaitValue(value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitCalls++
	for m.completed < value {
		m.cond.Wait()
	}
	return nil
}

func (m *mockNative) WaitIdle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitIdleCalls++
	m.events = append(m.events, "wait_idle")
	if m.lastSubmit > m.completed {
		m.completed = m.lastSubmit
		m.cond.Broadcast()
	}
	return nil
}

func (m *mockNative) Destroy(r native.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, r)
}

func (m *mockNative) event(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockNative) eventLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// complete advances the device timeline to v.
func (m *mockNative) complete(v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v > m.completed {
		m.completed = v
		m.cond.Broadcast()
	}
}

func (m *mockNative) snapshot() []mockSubmit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubmit(nil), m.submits...)
}

func (m *mockNative) isDestroyed(r native.Resource) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.destroyed {
		if d == r {
			return true
		}
	}
	return false
}

func (m *mockNative) counts() (allocated, freed, waitCalls, waitIdleCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated, m.freed, m.waitCalls, m.waitIdleCalls
}
