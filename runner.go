package rendergraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loov/hrtime"

	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/internal/cmdpool"
	"github.com/gogpu/rendergraph/native"
	"github.com/gogpu/rendergraph/timeline"
)

// runner is the submission runner. It is the only goroutine that records
// into command buffers or calls native Submit, so none of its fields need
// locking.
type runner struct {
	dev    *Device
	native native.Device
	log    *slog.Logger

	pool    *cmdpool.Pool
	builder graph.Builder

	// open is the command buffer currently recording, if any.
	open native.CommandBuffer

	// unsubmitted holds ended command buffers waiting for the next device
	// submission, in recording order.
	unsubmitted []native.CommandBuffer
}

func newRunner(d *Device) *runner {
	return &runner{
		dev:    d,
		native: d.native,
		log:    d.log,
		pool:   cmdpool.New(d.native, d.opts.chunkSize),
	}
}

// run processes submissions until ctx is canceled or a native call fails.
func (r *runner) run(ctx context.Context) {
	var err error
	defer func() {
		r.shutdown(err)
		close(r.dev.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s, ok := r.dev.intake.PopTimeout(r.dev.opts.pollInterval)
		if !ok {
			continue
		}
		if err = r.process(s); err != nil {
			r.log.Error("rendergraph: submission runner failed",
				"timeline", uint64(s.value),
				"err", err)
			s.issued.Fire(err)
			r.dev.graphs.Put(s.graph)
			return
		}
	}
}

func (r *runner) process(s *submission) error {
	d := r.dev

	completed, err := r.observe()
	if err != nil {
		return err
	}
	if n := d.orphans.DestroyDiscarded(r.native, completed); n > 0 {
		r.log.Debug("rendergraph: destroyed orphans", "count", n, "completed", uint64(completed))
	}

	// Work recorded so far must not be delayed by this graph's wait.
	if s.info.WaitSemaphore != nil && r.open != nil {
		if err := r.endOpen(); err != nil {
			return err
		}
	}

	if r.open == nil {
		if err := r.beginOpen(completed); err != nil {
			return err
		}
	}

	start := hrtime.Now()
	n, err := r.builder.Build(s.graph, r.open)
	d.stats.buildTime.Add(int64(hrtime.Since(start)))
	d.stats.recordedNodes.Add(uint64(n))
	if err != nil {
		return fmt.Errorf("rendergraph: build %q: %w", s.graph.Label(), err)
	}
	d.stats.recordedGraphs.Add(1)

	if s.info.SubmitToDevice {
		if err := r.submit(s); err != nil {
			return err
		}
	} else {
		d.stats.deferredGraphs.Add(1)
	}

	d.graphs.Put(s.graph)
	return nil
}

// observe reads the device completion value into the timeline.
func (r *runner) observe() (timeline.Value, error) {
	v, err := r.native.CompletedValue()
	if err != nil {
		return 0, fmt.Errorf("rendergraph: query completed value: %w", err)
	}
	r.dev.timeline.Observe(timeline.Value(v))
	return r.dev.timeline.Completed(), nil
}

func (r *runner) beginOpen(completed timeline.Value) error {
	cb, err := r.pool.Acquire(completed)
	r.dev.stats.commandBuffers.Store(int64(r.pool.Allocated()))
	if err != nil {
		return fmt.Errorf("rendergraph: acquire command buffer: %w", err)
	}
	if err := cb.Begin(); err != nil {
		r.pool.Discard(cb)
		return fmt.Errorf("rendergraph: begin command buffer: %w", err)
	}
	r.open = cb
	return nil
}

// endOpen finishes the open command buffer and queues it for the next
// device submission.
func (r *runner) endOpen() error {
	if r.open == nil {
		return nil
	}
	cb := r.open
	r.open = nil
	r.unsubmitted = append(r.unsubmitted, cb)
	if err := cb.End(); err != nil {
		return fmt.Errorf("rendergraph: end command buffer: %w", err)
	}
	return nil
}

// submit issues one native submission for every unsubmitted command buffer
// plus the open one.
func (r *runner) submit(s *submission) error {
	d := r.dev
	if err := r.endOpen(); err != nil {
		return err
	}

	info := &native.SubmitInfo{
		CommandBuffers:  r.unsubmitted,
		WaitSemaphore:   s.info.WaitSemaphore,
		WaitStage:       s.info.WaitStage,
		TimelineValue:   uint64(s.value),
		SignalSemaphore: s.info.SignalSemaphore,
		SignalFence:     s.info.SignalFence,
	}
	start := hrtime.Now()
	err := r.native.Submit(info)
	d.stats.submitTime.Add(int64(hrtime.Since(start)))
	if err != nil {
		return fmt.Errorf("rendergraph: submit timeline %d: %w", s.value, err)
	}
	d.stats.submissions.Add(1)

	d.markSubmitted(s.value)
	s.issued.Fire(nil)

	r.log.Debug("rendergraph: submitted",
		"timeline", uint64(s.value),
		"command_buffers", len(r.unsubmitted),
		"wait_stage", s.info.WaitStage.String())

	for i, cb := range r.unsubmitted {
		r.pool.Release(cb, s.value)
		r.unsubmitted[i] = nil
	}
	r.unsubmitted = r.unsubmitted[:0]
	return nil
}

// shutdown fails queued work, waits for the device to go idle, drops
// unsubmitted recordings and releases everything the runner owns. It runs on
// every exit path.
func (r *runner) shutdown(cause error) {
	d := r.dev

	pending := d.stop(cause)
	closeErr := d.closeErr
	for _, s := range pending {
		s.issued.Fire(closeErr)
		d.graphs.Put(s.graph)
	}
	if len(pending) > 0 {
		r.log.Warn("rendergraph: dropped queued submissions", "count", len(pending))
	}

	if r.open != nil {
		r.unsubmitted = append(r.unsubmitted, r.open)
		r.open = nil
	}

	// A submit that failed after queueing may have left these buffers on
	// the GPU, so nothing is reset before the device is idle.
	if err := r.native.WaitIdle(); err != nil {
		r.log.Error("rendergraph: wait idle", "err", err)
		if cause == nil {
			cause = fmt.Errorf("rendergraph: wait idle: %w", err)
		}
	} else if v, err := r.native.CompletedValue(); err == nil {
		d.timeline.Observe(timeline.Value(v))
	}

	if len(r.unsubmitted) > 0 {
		r.log.Warn("rendergraph: dropped unsubmitted command buffers", "count", len(r.unsubmitted))
	}
	for _, cb := range r.unsubmitted {
		r.pool.Discard(cb)
	}
	r.unsubmitted = nil

	r.pool.Free()
	destroyed := d.orphans.DestroyAll(r.native)

	d.runErr = cause
	r.log.Info("rendergraph: submission runner stopped",
		"command_buffers", r.pool.Allocated(),
		"orphans_destroyed", destroyed)
}
