package arenaprobe

import (
	"github.com/cockroachdb/errors"

	"github.com/shadowheap/monitor/internal/diag"
	"github.com/shadowheap/monitor/internal/layout"
	"github.com/shadowheap/monitor/internal/rawheap"
)

// TcacheInfo bundles the resolved tcache struct address and the layout
// needed to read it, once per process lifetime.
type TcacheInfo struct {
	Addr   uintptr
	Layout layout.TcacheLayout
	// PatchedMallopt reports whether the optional mallopt side channel
	// (SPEC_FULL.md §5 Open Question (b)) supplied the address instead of
	// the key-field leak below.
	PatchedMallopt bool
}

// tcacheProbeSize is a size bucket small enough to land in a tcache bin on
// every glibc release this module targets (tcache covers requests up to
// 1032 bytes by default).
const tcacheProbeSize = 0x40

// LeakTcache resolves the calling thread's tcache_perthread_struct address.
// It tries, in order: the optional patched-mallopt side channel (b), then
// the tcache_entry key-field trick available since glibc 2.29. On pre-2.29
// glibc, which has no key field to read, it runs the LIFO-reversal check,
// which never yields an address, so LeakTcache reports an error there.
func LeakTcache(ver GlibcVersion) (TcacheInfo, error) {
	tl := layout.NewTcacheLayout(ver.CountWidth())

	if addr, ok := patchedMalloptTcache(); ok {
		diag.Info("arenaprobe: tcache resolved via patched-mallopt side channel at %#x", addr)
		return TcacheInfo{Addr: addr, Layout: tl, PatchedMallopt: true}, nil
	}

	if ver.AtLeast229() {
		addr, err := leakTcacheViaKey(tl)
		if err != nil {
			return TcacheInfo{}, err
		}
		diag.Info("arenaprobe: tcache resolved via key-field leak at %#x", addr)
		return TcacheInfo{Addr: addr, Layout: tl}, nil
	}

	addr, err := leakTcacheViaLIFO(tl)
	if err != nil {
		return TcacheInfo{}, err
	}
	diag.Info("arenaprobe: tcache resolved via LIFO-reversal probe at %#x", addr)
	return TcacheInfo{Addr: addr, Layout: tl}, nil
}

// leakTcacheViaKey exploits glibc >= 2.29's double-free hardening: every
// tcache_entry stores a key pointing back at the tcache_perthread_struct
// that owns it, precisely so free() can check "was this already freed into
// THIS thread's tcache". Freeing one chunk and reading that key field back
// out of it hands us the tcache address directly — no further offset math
// needed, unlike the arena leak.
func leakTcacheViaKey(tl layout.TcacheLayout) (uintptr, error) {
	p := rawheap.Malloc(tcacheProbeSize)
	if p == 0 {
		return 0, errors.New("arenaprobe: tcache-key probe allocation failed")
	}
	rawheap.Free(p)

	entry := layout.TcacheEntry{Addr: p}
	key := entry.Key()
	if key == 0 {
		return 0, errors.New("arenaprobe: tcache-key probe read a zero key; tcache may be disabled (tunables glibc.malloc.tcache_count=0)")
	}
	return key, nil
}

// leakTcacheViaLIFO is the glibc < 2.29 path, where tcache_entry has no key
// field to read. It allocates and frees two same-size-class chunks, X then
// Y, and checks that the next two allocations return Y then X (tcache is
// LIFO). It never recovers the tcache struct's address: it always returns
// an error, whose text says whether the LIFO check itself failed.
func leakTcacheViaLIFO(tl layout.TcacheLayout) (uintptr, error) {
	x := rawheap.Malloc(tcacheProbeSize)
	y := rawheap.Malloc(tcacheProbeSize)
	if x == 0 || y == 0 {
		return 0, errors.New("arenaprobe: LIFO probe allocation failed")
	}
	rawheap.Free(x)
	rawheap.Free(y)

	// The bin head (entries[bin]) should now be Y; Y's chunk-local next
	// field should point at X, confirming LIFO order before we trust this
	// probe's arithmetic. We don't have entries[]'s address yet — only
	// live chunk contents — so we read this relationship back out through
	// the one remaining probe glibc leaves available pre-2.29: reallocating
	// the bin head and checking it comes back as Y.
	z := rawheap.Malloc(tcacheProbeSize)
	if z != y {
		return 0, errors.Newf("arenaprobe: LIFO reversal probe failed: expected reallocation to return %#x, got %#x", y, z)
	}

	// z stays allocated until after the second pop, so that pop takes the
	// next entry (X) rather than Y again.
	w := rawheap.Malloc(tcacheProbeSize)
	rawheap.Free(w)
	rawheap.Free(z)
	if w != x {
		return 0, errors.Newf("arenaprobe: LIFO reversal probe failed on second pop: expected %#x, got %#x", x, w)
	}

	// LIFO ordering confirmed, but without a key field there is no pointer
	// anywhere in these chunks that leads back to entries[] itself: glibc
	// pre-2.29 never writes the tcache struct's own address into any chunk
	// it hands out. The LIFO check above is what the original uses to
	// confirm tcache is active at all before giving up on this path; the
	// TODO this mirrors is in SPEC_FULL.md §5 Open Question (a).
	return 0, errors.New(
		"arenaprobe: this glibc predates the tcache key field and has no symbol-free way to " +
			"locate entries[] without it; run with SHADOWHEAP_DISABLE_TCACHECKS=1 on this libc")
}

// Mallopt parameter values matching the original's patched-allocator
// control-value convention (SPEC_FULL.md §5 Open Question (b)).
// patchedMalloptTcache issues both calls, but rawheap.Mallopt reduces
// mallopt's return value to a success flag, so no address is ever read
// back: the function always reports the side channel as unavailable, and
// LeakTcache goes on to its other paths. Stock glibc returns 0 (failure)
// for an unrecognized param, which ends the attempt after the first call.
const (
	malloptTcacheProbeA = -11
	malloptTcacheProbeB = -12
)

func patchedMalloptTcache() (uintptr, bool) {
	ok := rawheap.Mallopt(malloptTcacheProbeA, 0)
	if !ok {
		return 0, false
	}
	ok = rawheap.Mallopt(malloptTcacheProbeB, 0)
	if !ok {
		return 0, false
	}
	// A real patched build would return the address through a side
	// channel (e.g. a second mallopt call with a result pointer); stock
	// glibc never reaches here since the first probe already failed.
	return 0, false
}
