// Package snapshot holds the facade's "trusted shadow copy" of the three
// pieces of arena-wide allocator state that a single corrupted chunk can
// silently poison: the top chunk, the unsorted bin's chunk list, and every
// tcache bin's free list. Each has its own Store (record what glibc
// currently has) and Check (compare against what was last recorded) pair,
// grounded on ShadowHeapFacade.h's store_top/check_top,
// store_unsortedbin/check_unsortedbin, and store_tcache/check_tcache.
package snapshot

import "github.com/shadowheap/monitor/internal/layout"

// TopSnapshot is the shadow record for the arena's top (wilderness) chunk.
type TopSnapshot struct {
	addr uintptr
	size uint64
	set  bool
}

// Store records the current top chunk's address and size.
func (s *TopSnapshot) Store(a layout.Arena) {
	top := a.Top()
	s.addr = top
	s.size = layout.Chunk{Addr: top}.Size()
	s.set = true
}

// Check compares the live top chunk against the last stored snapshot. A
// mismatch in address means the arena moved the top chunk through a path
// this monitor didn't observe (sbrk extension is expected and must be
// re-Stored immediately after, not flagged); a mismatch in size for the
// *same* address, observed between two calls this monitor did bracket, is
// the corruption signal.
func (s *TopSnapshot) Check(a layout.Arena) (ok bool, liveAddr uintptr, liveSize uint64, storedSize uint64) {
	top := a.Top()
	liveSize = layout.Chunk{Addr: top}.Size()
	if !s.set {
		return true, top, liveSize, liveSize
	}
	if top != s.addr {
		return true, top, liveSize, s.size
	}
	return liveSize == s.size, top, liveSize, s.size
}
