// Command rgstress drives a rendergraph device from many goroutines and
// reports submission statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/loov/hrtime"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/backend"
	"github.com/gogpu/rendergraph/backend/wgpuhal"
	"github.com/gogpu/rendergraph/discard"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/native"
)

// bufferCreator is implemented by backends that can allocate buffers.
// Other backends are driven with marker commands only.
type bufferCreator interface {
	CreateBuffer(label string, size uint64, usage gputypes.BufferUsage) (*wgpuhal.Buffer, error)
}

func main() {
	var (
		backendName = flag.String("backend", backend.BackendNoop, "native backend ("+fmt.Sprint(backend.Available())+")")
		producers   = flag.Int("producers", 4, "producer goroutines")
		graphs      = flag.Int("graphs", 1000, "graphs per producer")
		nodes       = flag.Int("nodes", 8, "nodes per graph")
		deferred    = flag.Int("deferred", 4, "every n-th graph is recorded without device submission (0 disables)")
		chunk       = flag.Int("chunk", 0, "command buffer allocation chunk (0 for default)")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		rendergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := workload{
		graphs:   *graphs,
		nodes:    *nodes,
		deferred: *deferred,
	}
	res, err := stress(*backendName, *producers, *chunk, cfg)
	if err != nil {
		log.Fatalf("Stress run failed: %v", err)
	}

	s := res.stats
	total := *producers * *graphs
	log.Printf("backend=%s producers=%d graphs=%d elapsed=%v (%.0f graphs/s)",
		res.backend, *producers, total, res.elapsed, float64(total)/res.elapsed.Seconds())
	log.Printf("submissions=%d recorded=%d deferred=%d empty=%d nodes=%d",
		s.Submissions, s.RecordedGraphs, s.DeferredGraphs, s.EmptyGraphs, s.RecordedNodes)
	log.Printf("timeline issued=%d completed=%d command_buffers=%d orphans_destroyed=%d",
		s.Issued, s.Completed, s.CommandBuffers, s.OrphansDestroyed)
	log.Printf("build=%v submit=%v", s.BuildTime, s.SubmitTime)
}

type result struct {
	backend string
	stats   rendergraph.Stats
	elapsed time.Duration
}

// stress runs cfg on producers goroutines against the named backend. Both
// the rendergraph device and the backend device are closed before it
// returns, on every path.
func stress(backendName string, producers, chunk int, cfg workload) (result, error) {
	nd, err := backend.Open(backendName)
	if err != nil {
		return result{}, fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if err := nd.Close(); err != nil {
			log.Printf("Failed to close backend: %v", err)
		}
	}()

	dev, err := rendergraph.New(nd, rendergraph.WithChunkSize(chunk), rendergraph.WithLabel("rgstress"))
	if err != nil {
		return result{}, fmt.Errorf("create device: %w", err)
	}

	start := hrtime.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for p := range producers {
		g.Go(func() error {
			return cfg.run(ctx, dev, nd, p)
		})
	}
	runErr := g.Wait()
	elapsed := hrtime.Since(start)

	if err := dev.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return result{}, runErr
	}
	return result{backend: nd.Name(), stats: dev.Stats(), elapsed: elapsed}, nil
}

type workload struct {
	graphs   int
	nodes    int
	deferred int
}

// run submits cfg.graphs graphs from one producer. Each graph ping-pongs
// copies between two producer-owned buffers and discards a scratch buffer.
func (w workload) run(ctx context.Context, dev *rendergraph.Device, nd backend.Device, producer int) error {
	bc, canAlloc := nd.(bufferCreator)
	var a, b native.Resource
	if canAlloc {
		usage := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
		ba, err := bc.CreateBuffer(fmt.Sprintf("p%d-a", producer), 4096, usage)
		if err != nil {
			return err
		}
		bb, err := bc.CreateBuffer(fmt.Sprintf("p%d-b", producer), 4096, usage)
		if err != nil {
			return err
		}
		defer nd.Destroy(ba)
		defer nd.Destroy(bb)
		a, b = ba, bb
	}

	for i := range w.graphs {
		if err := ctx.Err(); err != nil {
			return err
		}

		rg := dev.NewRenderGraph()
		rg.SetLabel(fmt.Sprintf("p%d-g%d", producer, i))
		for n := range w.nodes {
			node := graph.Node{Label: fmt.Sprintf("n%d", n)}
			if canAlloc {
				node.Command = native.CopyBuffer{Src: a, Dst: b, Size: 4096}
				node.Reads = []native.Resource{a}
				node.Writes = []native.Resource{b}
				a, b = b, a
			} else {
				node.Command = native.Marker{Label: node.Label}
			}
			if _, err := rg.Add(node); err != nil {
				return err
			}
		}

		pool := discard.NewPool()
		if canAlloc {
			scratch, err := bc.CreateBuffer("scratch", 256, gputypes.BufferUsageCopyDst)
			if err != nil {
				return err
			}
			pool.Discard(scratch)
		}

		last := i == w.graphs-1
		info := rendergraph.SubmitInfo{
			SubmitToDevice:    last || w.deferred <= 0 || i%w.deferred != 0,
			WaitForCompletion: last,
		}
		if _, err := dev.Submit(rg, pool, info); err != nil {
			return fmt.Errorf("producer %d graph %d: %w", producer, i, err)
		}
	}
	return nil
}
