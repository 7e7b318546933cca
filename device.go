package rendergraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/rendergraph/discard"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/internal/queue"
	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

// Device owns the submission pipeline of one native device: the timeline,
// the intake queue, the orphan pool, the render graph free-list and the
// submission runner goroutine.
//
// Architecture:
//
//	producer goroutines                      runner goroutine
//	  NewRenderGraph -> fill -> Submit  --->   intake queue
//	                      |                       |
//	                      +-- discard.Pool  --->  orphans (tagged)
//	                                              |
//	                                     build, submit, signal timeline
//	                                              |
//	  free-list  <------------------------  reset graph
//
// All methods are safe for concurrent use. A render graph belongs to one
// goroutine at a time; after Submit it belongs to the device.
type Device struct {
	id     uuid.UUID
	opts   options
	log    *slog.Logger
	native native.Device

	timeline *timeline.Counter
	orphans  *discard.Orphans
	graphs   *graph.FreeList
	intake   *queue.Queue[*submission]

	// mu is the submission lock. It orders value assignment, orphan transfer
	// and intake pushes, and guards closed/closeErr.
	mu       sync.Mutex
	closed   bool
	closeErr error

	// subMu guards submitted and stopped; subCond is broadcast whenever
	// either changes.
	subMu     sync.Mutex
	subCond   *sync.Cond
	submitted timeline.Value
	stopped   bool

	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	closeOnce sync.Once

	stats stats
}

// New starts the submission runner for dev. The returned Device must be
// closed with Close.
func New(dev native.Device, opts ...Option) (*Device, error) {
	if dev == nil {
		return nil, ErrNilNative
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	log := o.logger
	if log == nil {
		log = Logger()
	}
	log = log.With("device", o.label, "id", id.String())
	propagateLogger(dev, log)

	d := &Device{
		id:       id,
		opts:     o,
		log:      log,
		native:   dev,
		timeline: timeline.NewCounter(dev),
		orphans:  discard.NewOrphans(),
		graphs:   graph.NewFreeList(),
		intake:   queue.New[*submission](),
		done:     make(chan struct{}),
	}
	d.subCond = sync.NewCond(&d.subMu)

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	r := newRunner(d)
	go r.run(ctx)

	log.Info("rendergraph: submission runner started",
		"chunk_size", o.chunkSize,
		"poll_interval", o.pollInterval)
	return d, nil
}

// ID returns the device's unique id.
func (d *Device) ID() uuid.UUID { return d.id }

// Label returns the debug label.
func (d *Device) Label() string { return d.opts.label }

// NewRenderGraph returns an empty render graph, recycled when possible.
func (d *Device) NewRenderGraph() *graph.RenderGraph {
	return d.graphs.Get(d.opts.label)
}

// Timeline returns the last issued timeline value.
func (d *Device) Timeline() timeline.Value {
	return d.timeline.Current()
}

// Completed returns the last timeline value confirmed complete.
func (d *Device) Completed() timeline.Value {
	return d.timeline.Completed()
}

// WaitForTimeline blocks until v has completed on the device. Waiting for a
// value already known complete returns immediately.
//
// The wait is unbounded. If the device stopped before handing v to the native
// queue, the error wraps ErrClosed or the fatal runner error.
func (d *Device) WaitForTimeline(v timeline.Value) error {
	if d.timeline.IsComplete(v) {
		return nil
	}
	if v > d.timeline.Current() {
		return fmt.Errorf("rendergraph: wait for timeline %d: not issued (current %d)", v, d.timeline.Current())
	}
	if err := d.waitSubmitted(v); err != nil {
		return err
	}
	return d.timeline.WaitFor(v)
}

// Close stops the submission runner, waits for the device to go idle and
// releases every pooled command buffer and orphaned resource. Submissions
// still queued fail with ErrClosed. Close returns the fatal runner error, if
// any, and is safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.done
		d.log.Info("rendergraph: device closed", "timeline", d.timeline.Current())
	})
	return d.runErr
}

// Done returns a channel closed once the submission runner has exited,
// either through Close or a fatal native failure.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// stop marks the device closed and returns the tasks that never reached the
// runner. A nil cause is recorded as ErrClosed. Called by the runner on exit.
func (d *Device) stop(cause error) []*submission {
	if cause == nil {
		cause = ErrClosed
	}
	d.mu.Lock()
	d.closed = true
	d.closeErr = cause
	pending := d.intake.Drain()
	d.mu.Unlock()

	d.subMu.Lock()
	d.stopped = true
	d.subCond.Broadcast()
	d.subMu.Unlock()
	return pending
}

func (d *Device) markSubmitted(v timeline.Value) {
	d.subMu.Lock()
	d.submitted = v
	d.subCond.Broadcast()
	d.subMu.Unlock()
}

// waitSubmitted blocks until the runner handed v to the native queue. If the
// runner stopped first, the error wraps the reason it stopped.
func (d *Device) waitSubmitted(v timeline.Value) error {
	d.subMu.Lock()
	for d.submitted < v {
		if d.stopped {
			d.subMu.Unlock()
			return fmt.Errorf("rendergraph: wait for timeline %d: %w", v, d.stopCause())
		}
		d.subCond.Wait()
	}
	d.subMu.Unlock()
	return nil
}

func (d *Device) stopCause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr == nil {
		return ErrClosed
	}
	return d.closeErr
}
