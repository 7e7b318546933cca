// Package backend is a registry of native device backends.
//
// Backend packages register a Factory from init(), so importing one for its
// side effect makes it available by name:
//
//	import _ "github.com/gogpu/rendergraph/backend/wgpuhal"
//
//	dev, err := backend.Open(backend.BackendNoop)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	rg, err := rendergraph.New(dev)
//
// OpenDefault tries the registered backends in priority order and returns
// the first one that opens.
package backend
