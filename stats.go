package rendergraph

import (
	"sync/atomic"
	"time"

	"github.com/gogpu/rendergraph/timeline"
)

// Stats is a snapshot of a device's submission counters.
type Stats struct {
	// Submissions counts native submit calls.
	Submissions uint64
	// RecordedGraphs counts graphs recorded by the runner.
	RecordedGraphs uint64
	// DeferredGraphs counts graphs recorded without device submission.
	DeferredGraphs uint64
	// EmptyGraphs counts graphs recycled by the empty-graph fast path.
	EmptyGraphs uint64
	// RecordedNodes counts nodes serialized into command buffers.
	RecordedNodes uint64

	// CommandBuffers is the number of command buffers allocated so far.
	CommandBuffers int
	// OrphansPending and OrphansDestroyed describe the orphan pool.
	OrphansPending   int
	OrphansDestroyed int

	Issued    timeline.Value
	Completed timeline.Value

	// BuildTime and SubmitTime accumulate time spent recording and in native
	// submit calls on the runner goroutine.
	BuildTime  time.Duration
	SubmitTime time.Duration
}

type stats struct {
	submissions    atomic.Uint64
	recordedGraphs atomic.Uint64
	deferredGraphs atomic.Uint64
	emptyGraphs    atomic.Uint64
	recordedNodes  atomic.Uint64
	commandBuffers atomic.Int64
	buildTime      atomic.Int64
	submitTime     atomic.Int64
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	return Stats{
		Submissions:      d.stats.submissions.Load(),
		RecordedGraphs:   d.stats.recordedGraphs.Load(),
		DeferredGraphs:   d.stats.deferredGraphs.Load(),
		EmptyGraphs:      d.stats.emptyGraphs.Load(),
		RecordedNodes:    d.stats.recordedNodes.Load(),
		CommandBuffers:   int(d.stats.commandBuffers.Load()),
		OrphansPending:   d.orphans.Len(),
		OrphansDestroyed: d.orphans.Destroyed(),
		Issued:           d.timeline.Current(),
		Completed:        d.timeline.Completed(),
		BuildTime:        time.Duration(d.stats.buildTime.Load()),
		SubmitTime:       time.Duration(d.stats.submitTime.Load()),
	}
}
