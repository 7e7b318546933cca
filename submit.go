package rendergraph

import (
	"fmt"

	"github.com/gogpu/rendergraph/discard"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/internal/event"
	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

// SubmitInfo describes how a render graph is submitted.
type SubmitInfo struct {
	// SubmitToDevice sends the recorded work, together with every earlier
	// recording-only submission, to the native queue. When false the graph
	// is only recorded and rides along with the next device submission.
	SubmitToDevice bool

	// WaitForCompletion blocks Submit until the GPU finished the work.
	WaitForCompletion bool

	// WaitSemaphore delays WaitStage of this submission until the semaphore
	// is signaled. Work recorded before this graph is not delayed.
	WaitSemaphore native.Semaphore
	WaitStage     native.PipelineStage

	// SignalSemaphore and SignalFence are signaled when the work completes.
	// Submit returns only after the native submit call was issued, so the
	// semaphore is valid to wait on for another queue.
	SignalSemaphore native.Semaphore
	SignalFence     native.Fence
}

func (info *SubmitInfo) requestsSync() bool {
	return info.WaitForCompletion || info.WaitSemaphore != nil ||
		info.SignalSemaphore != nil || info.SignalFence != nil
}

// needsIssued reports whether Submit must wait for the runner to issue the
// native submit call before returning.
func (info *SubmitInfo) needsIssued() bool {
	return info.WaitForCompletion || info.SignalSemaphore != nil || info.SignalFence != nil
}

// submission is the envelope handed from a producer to the runner.
type submission struct {
	graph *graph.RenderGraph
	info  SubmitInfo
	value timeline.Value

	// issued fires once the native submit call covering this graph returned,
	// or with an error if it never will.
	issued *event.Event
}

// Submit hands g to the submission runner and returns the timeline value
// assigned to it. Ownership of g passes to the device unless an error is
// returned before enqueueing.
//
// Resources in pool move to the device's orphan pool tagged with the returned
// value and are destroyed once it completes. pool may be nil.
//
// An empty graph is recycled immediately: nothing is enqueued and the current
// timeline value is returned.
//
// Recording-only submissions (SubmitToDevice false) receive the value the next
// device submission will use, since that is when their commands reach the GPU.
func (d *Device) Submit(g *graph.RenderGraph, pool *discard.Pool, info SubmitInfo) (timeline.Value, error) {
	if g == nil {
		return 0, ErrNilGraph
	}
	if !info.SubmitToDevice && info.requestsSync() {
		return 0, ErrSyncWithoutSubmit
	}
	if g.IsEmpty() {
		d.graphs.Put(g)
		d.stats.emptyGraphs.Add(1)
		return d.timeline.Current(), nil
	}
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("rendergraph: submit %q: %w", g.Label(), err)
	}

	s := &submission{graph: g, info: info, issued: event.New()}

	d.mu.Lock()
	if d.closed {
		err := d.closeErr
		d.mu.Unlock()
		return 0, err
	}
	if info.SubmitToDevice {
		s.value = d.timeline.Increment()
	} else {
		s.value = d.timeline.Pending()
	}
	moved := d.orphans.MoveData(pool, s.value)
	nodes := g.Len()
	d.intake.Push(s)
	d.mu.Unlock()

	d.log.Debug("rendergraph: submission queued",
		"timeline", uint64(s.value),
		"nodes", nodes,
		"to_device", info.SubmitToDevice,
		"orphans", moved)

	if info.needsIssued() {
		if err := s.issued.Wait(); err != nil {
			return s.value, err
		}
	}
	if info.WaitForCompletion {
		if err := d.timeline.WaitFor(s.value); err != nil {
			return s.value, fmt.Errorf("rendergraph: wait for completion: %w", err)
		}
	}
	return s.value, nil
}
