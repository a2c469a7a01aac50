package arenaprobe

import (
	"github.com/cockroachdb/errors"

	"github.com/shadowheap/monitor/internal/diag"
	"github.com/shadowheap/monitor/internal/layout"
	"github.com/shadowheap/monitor/internal/rawheap"
)

// sandwichSize is chosen above both the fastbin threshold (glibc's default
// DEFAULT_MXFAST is 0x80 including header on LP64) and the largest tcache
// request (1032 bytes by default, see tcacheProbeSize) so that freeing the
// middle chunk lands it in the unsorted bin rather than a fastbin or tcache
// bin — the unsorted bin's sentinel is what this leak reads back.
const sandwichSize = 0x420

// LeakMainArena recovers the main arena's base address without any
// symbols, by sandwiching a middle allocation between two others (so it
// can't consolidate with a neighbor on free), freeing it, and reading the
// sentinel pointer glibc writes into the now-sole unsorted-bin entry's
// fd/bk — grounded on leak.cxx's main-arena leak via the smallbin/unsorted
// sentinel offset. ver selects offset_adjust_references (step 1 of the
// arena probe); an unrecognized version fails the probe rather than
// reading a struct malloc_state with the wrong field layout.
func LeakMainArena(ver GlibcVersion) (layout.Arena, error) {
	adjust, ok := ver.OffsetAdjustReferences()
	if !ok {
		return layout.Arena{}, errors.Newf("arenaprobe: glibc %d.%d is outside the versions this module's arena offsets were checked against", ver.Major, ver.Minor)
	}
	offsets := layout.StandardOffsets(adjust)

	a := rawheap.Malloc(sandwichSize)
	b := rawheap.Malloc(sandwichSize)
	c := rawheap.Malloc(sandwichSize)
	if a == 0 || b == 0 || c == 0 {
		return layout.Arena{}, errors.New("arenaprobe: sandwich allocation failed")
	}
	defer rawheap.Free(a)
	defer rawheap.Free(c)

	rawheap.Free(b)

	bChunk := layout.AtMem(b)
	fd := bChunk.Fd()
	bk := bChunk.Bk()
	if fd == 0 || fd != bk {
		return layout.Arena{}, errors.Newf(
			"arenaprobe: unsorted-bin sentinel leak produced inconsistent fd/bk (fd=%#x bk=%#x); "+
				"another thread likely allocated during the probe", fd, bk)
	}

	// fd now equals bin_at(arena, 1), i.e. arena.Addr + offsets.Bins - 2*SizeSZ.
	arenaAddr := fd - offsets.Bins + 2*layout.SizeSZ

	candidate := layout.Arena{Addr: arenaAddr, Offsets: offsets}
	resolved, err := validateArena(candidate)
	if err != nil {
		return layout.Arena{}, err
	}

	diag.Info("arenaprobe: resolved main arena at %#x", resolved.Addr)
	return resolved, nil
}

// validateArena cross-checks the resolved address: a malloc_state's own
// next pointer, for a single-arena (non-threaded allocator use) process,
// points back to itself. If that check fails, SPEC_FULL.md's supplemented
// feature 5 retries 0x20 bytes earlier and checks next_free instead —
// glibc's arena allocator briefly leaves a half-initialized malloc_state
// at that offset in some multi-arena startup races, and the original
// reference implementation's fallback exists for exactly that window.
func validateArena(a layout.Arena) (layout.Arena, error) {
	if a.Next() == a.Addr {
		return a, nil
	}
	fallback := layout.Arena{Addr: a.Addr - 0x20, Offsets: a.Offsets}
	if fallback.NextFree() == fallback.Addr {
		return fallback, nil
	}
	return layout.Arena{}, errors.Newf("arenaprobe: arena self-pointer validation failed at %#x (next=%#x)", a.Addr, a.Next())
}
