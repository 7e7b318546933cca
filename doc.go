// Package rendergraph submits GPU work described as render graphs to a
// native device from any number of goroutines.
//
// # Overview
//
// Producers fill a render graph with commands, hand it to Device.Submit and
// receive a timeline value. A single runner goroutine records the graph into
// pooled command buffers and submits them to the native queue, so native
// command recording never needs a lock. The timeline value completes once
// the GPU finished the work, which makes it the handle for fencing, command
// buffer reuse and deferred resource destruction.
//
// # Quick Start
//
//	dev, err := rendergraph.New(nativeDevice)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	g := dev.NewRenderGraph()
//	g.Add(graph.Node{Label: "blit", Command: native.CopyBuffer{Src: a, Dst: b, Size: n}, Reads: []native.Resource{a}, Writes: []native.Resource{b}})
//
//	v, err := dev.Submit(g, nil, rendergraph.SubmitInfo{SubmitToDevice: true})
//	...
//	dev.WaitForTimeline(v)
//
// # Recording-only submissions
//
// A submission with SubmitToDevice false is recorded but not sent. It rides
// along with the next device submission, in submission order, and its value
// is the value that submission receives. Such a submission cannot request
// semaphores, fences or completion.
//
// # Resource lifetime
//
// Resources the caller stops using while the GPU may still read them go into
// a discard.Pool passed to Submit. The device destroys them once the returned
// timeline value completes, or at Close.
//
// # Backends
//
// The native package defines the device contract. backend/wgpuhal implements it
// on top of gogpu/wgpu HAL devices.
package rendergraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
