// Package facade is the single entry point every intercepted
// malloc/calloc/realloc/free call passes through: it sequences the
// before/after checks against the shadow snapshots, updates the
// per-pointer metadata store, and is the only package that calls
// internal/abort.
//
// Grounded on wrapper/ShadowHeapWrapper.h and facade/ShadowHeapFacade.h.
package facade

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/shadowheap/monitor/internal/abort"
	"github.com/shadowheap/monitor/internal/arenaprobe"
	"github.com/shadowheap/monitor/internal/buf"
	"github.com/shadowheap/monitor/internal/diag"
	"github.com/shadowheap/monitor/internal/layout"
	"github.com/shadowheap/monitor/internal/metastore"
	"github.com/shadowheap/monitor/internal/modeconfig"
	"github.com/shadowheap/monitor/internal/rawheap"
	"github.com/shadowheap/monitor/internal/snapshot"
)

// Facade is the monitor's runtime state. A process runs exactly one: shadow
// data describes the single process-wide glibc main arena this module
// targets, not a per-thread copy, which is also why Facade serializes every
// call behind one mutex — SPEC_FULL.md §5 Open Question (c).
type Facade struct {
	mu sync.Mutex

	cfg   modeconfig.Config
	probe arenaprobe.Probe
	store metastore.Store

	top      snapshot.TopSnapshot
	unsorted snapshot.UnsortedSnapshot
	tcache   snapshot.TcacheSnapshot

	initialized bool
}

// New constructs a Facade with the default metadata store.
func New() *Facade {
	return &Facade{store: metastore.NewCached()}
}

// Init resolves configuration and arena/tcache addresses, and takes the
// first snapshot of every enabled subsystem. It must run before any
// Malloc/Calloc/Realloc/Free call, and is not itself safe to call
// concurrently with those (the caller's constructor sequencing — see
// pkg/shadowheap.NewMonitor — guarantees this).
func (f *Facade) Init(environ []string) error {
	cfg, err := modeconfig.Load(environ)
	if err != nil {
		return errors.Wrap(err, "facade: init")
	}
	f.cfg = cfg

	if cfg.DisablePointerChecks {
		diag.Warn("per-pointer checks disabled via SHADOWHEAP_DISABLE_PTRCHECKS")
	} else {
		f.store.Reserve(int(cfg.InitialCapacity))
	}

	probe, err := arenaprobe.Run()
	if err != nil {
		return errors.Wrap(err, "facade: arena probe")
	}
	f.probe = probe
	diag.Info("%s", probe.Report())

	if cfg.DisableLeakChecks {
		diag.Warn("leak-dependent checks disabled via SHADOWHEAP_DISABLE_LEAKCHECKS")
		f.cfg.DisableTopChecks = true
		f.cfg.DisableUnsortedBin = true
	} else if !probe.ArenaValid {
		diag.Warn("arena probe invalid for glibc %d.%d; running in degraded no-leak mode with top/unsorted-bin checks disabled",
			probe.Version.Major, probe.Version.Minor)
		f.cfg.DisableTopChecks = true
		f.cfg.DisableUnsortedBin = true
	}
	if !probe.TcacheValid && !f.cfg.DisableTcacheChecks {
		diag.Warn("tcache probe unavailable; disabling tcache checks")
		f.cfg.DisableTcacheChecks = true
	}

	if !f.cfg.DisableTopChecks {
		f.top.Store(f.probe.Arena)
	}
	if !f.cfg.DisableUnsortedBin {
		f.unsorted.Store(f.probe.Arena)
	}
	if !f.cfg.DisableTcacheChecks {
		f.tcache.Store(f.probe.Tcache.Addr, f.probe.Tcache.Layout)
	}

	f.initialized = true
	return nil
}

// checkBefore runs every enabled pre-call check. A mismatch here means
// something already corrupted the heap before this call even began —
// reported against the operation name for the diagnostic line.
func (f *Facade) checkBefore(op string) {
	if !f.cfg.DisableTopChecks {
		if ok, addr, live, stored := f.top.Check(f.probe.Arena); !ok {
			abort.Fatal("%s: top chunk size changed at %#x without this monitor observing it (live=%#x stored=%#x)",
				op, addr, live, stored)
		}
	}
	if !f.cfg.DisableUnsortedBin {
		if ok, m := f.unsorted.Check(f.probe.Arena); !ok {
			f.reportUnsortedMismatch(op, m)
		}
	}
	if !f.cfg.DisableTcacheChecks {
		if ok, m := f.tcache.Check(f.probe.Tcache.Addr, f.probe.Tcache.Layout); !ok {
			abort.Fatal("%s: tcache bin %d entry %d corrupted (live=%+v stored=%+v)", op, m.Bin, m.Index, m.Live, m.Stored)
		}
	}
}

// resnapshot re-records every enabled subsystem after a call that is
// expected to have changed it, bringing the shadow copy back in sync with
// the legitimate new state.
func (f *Facade) resnapshot() {
	if !f.cfg.DisableTopChecks {
		f.top.Store(f.probe.Arena)
	}
	if !f.cfg.DisableUnsortedBin {
		f.unsorted.Store(f.probe.Arena)
	}
	if !f.cfg.DisableTcacheChecks {
		f.tcache.Store(f.probe.Tcache.Addr, f.probe.Tcache.Layout)
	}
}

func (f *Facade) reportUnsortedMismatch(op string, m snapshot.UnsortedMismatch) {
	if m.Index < 0 {
		abort.Fatal("%s: unsorted bin entry count changed unexpectedly", op)
	}
	if m.HasPrev {
		abort.Fatal(
			"%s: unsorted bin entry %d corrupted (live=%+v stored=%+v); previous unsorted-bin entry was recorded as addr=%#x size=%d",
			op, m.Index, m.Live, m.Stored, m.PrevStored.Addr, m.PrevStored.Size)
	}
	abort.Fatal("%s: unsorted bin entry %d corrupted (live=%+v stored=%+v)", op, m.Index, m.Live, m.Stored)
}

// Malloc services an intercepted malloc(size) call.
func (f *Facade) Malloc(size uintptr) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rawheap.Depth() > 1 {
		return rawheap.Malloc(size)
	}

	f.checkBefore("malloc")
	ptr := rawheap.Malloc(size)
	if ptr != 0 && !f.cfg.DisablePointerChecks {
		if !f.store.Put(ptr, metastore.Entry{Size: uint64(layout.AtMem(ptr).Size())}) {
			abort.Fatal("malloc: pointer %#x returned by the allocator is already recorded as live (double allocation)", ptr)
		}
	}
	f.resnapshot()
	return ptr
}

// Calloc services an intercepted calloc(nmemb, size) call.
func (f *Facade) Calloc(nmemb, size uintptr) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rawheap.Depth() > 1 {
		return rawheap.Calloc(nmemb, size)
	}

	if _, ok := buf.MulOverflowSafe(int(nmemb), int(size)); !ok {
		diag.Warn("calloc: nmemb=%d * size=%d overflows, real calloc will reject it", nmemb, size)
	}

	f.checkBefore("calloc")
	ptr := rawheap.Calloc(nmemb, size)
	if ptr != 0 && !rawheap.IsBootstrapPointer(ptr) && !f.cfg.DisablePointerChecks {
		if !f.store.Put(ptr, metastore.Entry{Size: uint64(layout.AtMem(ptr).Size())}) {
			abort.Fatal("calloc: pointer %#x returned by the allocator is already recorded as live (double allocation)", ptr)
		}
	}
	f.resnapshot()
	return ptr
}

// Free services an intercepted free(ptr) call.
func (f *Facade) Free(ptr uintptr) {
	if ptr == 0 || rawheap.IsBootstrapPointer(ptr) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if rawheap.Depth() > 1 {
		rawheap.Free(ptr)
		return
	}

	live := f.checkBeforeFree(ptr)
	if !f.cfg.DisablePointerChecks {
		if !f.store.Remove(ptr, live) {
			abort.Fatal("free: pointer %#x failed shadow removal after passing the pre-free check", ptr)
		}
	}
	rawheap.Free(ptr)
	f.resnapshot()
}

// checkBeforeFree runs the general pre-call checks plus the per-pointer
// check against the metadata store, reporting the previous physical
// chunk's stored metadata on mismatch — SPEC_FULL.md supplemented
// feature 1. Returns the entry ptr is about to be removed with, so the
// caller's Remove call ptr-size-equal-matches exactly what was just
// verified.
func (f *Facade) checkBeforeFree(ptr uintptr) metastore.Entry {
	f.checkBefore("free")
	if f.cfg.DisablePointerChecks {
		return metastore.Entry{}
	}
	recorded, ok := f.store.Get(ptr)
	if !ok {
		abort.Fatal("free: pointer %#x was never recorded as allocated by this monitor (double free or foreign pointer)", ptr)
	}
	live := layout.AtMem(ptr).Size()
	if live != recorded.Size {
		chunk := layout.AtMem(ptr)
		prev := chunk.PrevChunk()
		prevRecorded, _ := f.store.Get(prev.Mem())
		abort.Fatal(
			"free: chunk at %#x has size %d but this monitor recorded %d at allocation time; previous chunk at %#x was recorded with size %d",
			ptr, live, recorded.Size, prev.Addr, prevRecorded.Size)
	}
	return metastore.Entry{Size: live}
}

// Realloc services an intercepted realloc(ptr, size) call. It is
// implemented as malloc-copy-free rather than deferring to the real
// realloc, matching wrapper/ShadowHeapWrapper.h: this way every resulting
// chunk has gone through the same allocate-path bookkeeping a realloc that
// shrinks, grows, or moves in place would otherwise skip.
func (f *Facade) Realloc(ptr uintptr, size uintptr) uintptr {
	if ptr == 0 {
		return f.Malloc(size)
	}
	if size == 0 {
		f.Free(ptr)
		return 0
	}

	f.mu.Lock()
	oldSize := uintptr(layout.AtMem(ptr).UsableSize())
	f.mu.Unlock()

	newPtr := f.Malloc(size)
	if newPtr == 0 {
		return 0
	}

	copyLen := oldSize
	if size < copyLen {
		copyLen = size
	}
	copyBytes(newPtr, ptr, copyLen)

	f.Free(ptr)
	return newPtr
}
