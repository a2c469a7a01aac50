// Package shadowheap is the public entry point for embedding this monitor
// directly in a Go program via cgo, or for a small C shim to call through
// cgo-exported wrappers built on top of it. It does not itself install any
// LD_PRELOAD symbol redirection — that linker-level mechanism is an
// external collaborator this module assumes, not something it implements.
package shadowheap

import (
	"os"

	"github.com/shadowheap/monitor/internal/facade"
)

// Monitor wraps a single process-wide shadow-heap facade.
type Monitor struct {
	f *facade.Facade
}

// NewMonitor resolves the current glibc's arena and tcache state and takes
// the first shadow snapshot. Configuration is read from the process
// environment per the SHADOWHEAP_* contract; an invalid or unrecognized
// SHADOWHEAP_-prefixed variable is returned as an error here rather than
// aborting the process. A failed arena or tcache probe is not an error: the
// monitor still constructs, running in a degraded mode with the dependent
// check categories disabled.
func NewMonitor() (*Monitor, error) {
	f := facade.New()
	if err := f.Init(os.Environ()); err != nil {
		return nil, err
	}
	return &Monitor{f: f}, nil
}

// Malloc intercepts a malloc(size) call.
func (m *Monitor) Malloc(size uintptr) uintptr {
	return m.f.Malloc(size)
}

// Calloc intercepts a calloc(nmemb, size) call.
func (m *Monitor) Calloc(nmemb, size uintptr) uintptr {
	return m.f.Calloc(nmemb, size)
}

// Realloc intercepts a realloc(ptr, size) call.
func (m *Monitor) Realloc(ptr, size uintptr) uintptr {
	return m.f.Realloc(ptr, size)
}

// Free intercepts a free(ptr) call.
func (m *Monitor) Free(ptr uintptr) {
	m.f.Free(ptr)
}
