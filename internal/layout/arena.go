package layout

// Field offsets into glibc's struct malloc_state ("main arena"), LP64
// layout. These mirror the original C reference's hand-derived offsets
// (leak.cxx ARENA_INFO) rather than any public glibc header, since glibc
// does not export this struct — arenaprobe locates the arena address at
// runtime and everything below is read relative to that address.
const (
	NFastbins  = 10
	NBins      = 254 // bins[NBINS*2-2], NBINS=128
	BinmapSize = 4

	OffMutex         = 0
	OffFlags         = OffMutex + 4
	OffHaveFastchunks = OffFlags + 4
	OffFastbinsY     = OffHaveFastchunks + 8 // have_fastchunks(4) plus 4 bytes of padding before the pointer-sized fastbinsY
)

// ArenaOffsets is computed per call from the resolved glibc version rather
// than hardcoded once, because struct malloc_state gained a have_fastchunks
// member in glibc 2.26 that shifts every following field by one word — see
// StandardOffsets's adjust parameter, selected by arenaprobe from the
// version string.
type ArenaOffsets struct {
	FastbinsY    uintptr
	Top          uintptr
	LastRemainder uintptr
	Bins         uintptr
	Binmap       uintptr
	Next         uintptr
	NextFree     uintptr
	SystemMem    uintptr
	MaxSystemMem uintptr
}

// Arena is a read-only view of malloc_state at a resolved base address,
// using field offsets calibrated once at startup.
type Arena struct {
	Addr    uintptr
	Offsets ArenaOffsets
}

// StandardOffsets returns the field layout glibc has used for
// struct malloc_state on LP64 since mutex_t became a plain int (removing
// the old pthread_mutex_t padding): mutex(4) + flags(4), then, from glibc
// 2.26 onward, an extra have_fastchunks(4) padded to 8, then fastbinsY[10],
// top, last_remainder, bins[254], binmap[4], next, next_free,
// attached_threads, system_mem, max_system_mem. adjust is
// offset_adjust_references from arenaprobe's version branching: 0 for
// glibc 2.24-2.25 (no have_fastchunks member), 8 from 2.26 onward.
func StandardOffsets(adjust uintptr) ArenaOffsets {
	fastbinsY := uintptr(8) + adjust // mutex+flags(+have_fastchunks padded to 8-byte boundary)
	top := fastbinsY + NFastbins*SizeSZ
	lastRemainder := top + SizeSZ
	bins := lastRemainder + SizeSZ
	binmap := bins + NBins*SizeSZ
	next := binmap + BinmapSize*4
	nextFree := next + SizeSZ
	attachedThreads := nextFree + SizeSZ
	systemMem := attachedThreads + SizeSZ
	maxSystemMem := systemMem + SizeSZ
	return ArenaOffsets{
		FastbinsY:     fastbinsY,
		Top:           top,
		LastRemainder: lastRemainder,
		Bins:          bins,
		Binmap:        binmap,
		Next:          next,
		NextFree:      nextFree,
		SystemMem:     systemMem,
		MaxSystemMem:  maxSystemMem,
	}
}

// Fastbin returns the head pointer of fastbin index i (0..9).
func (a Arena) Fastbin(i int) uintptr {
	return uintptr(readWord(a.Addr + a.Offsets.FastbinsY + uintptr(i)*SizeSZ))
}

// Top returns the current top chunk address.
func (a Arena) Top() uintptr {
	return uintptr(readWord(a.Addr + a.Offsets.Top))
}

// LastRemainder returns the last-remainder chunk address (0 if none).
func (a Arena) LastRemainder() uintptr {
	return uintptr(readWord(a.Addr + a.Offsets.LastRemainder))
}

// BinSentinelAddr computes bin_at(m, i): the address glibc treats as a
// pseudo-chunk sentinel for bin index i (1 = unsorted bin, 2.. = small/large
// bins). bins[] stores (i-1)*2 = fd, (i-1)*2+1 = bk for bin i; bin_at offsets
// back by the chunk header's fd field position (2*SizeSZ) so that reading
// ->Fd()/->Bk() on the returned address lands on bins[(i-1)*2] / bins[(i-1)*2+1]
// exactly as it would on a real chunk.
func (a Arena) BinSentinelAddr(i int) uintptr {
	return a.Addr + a.Offsets.Bins + uintptr(i-1)*2*SizeSZ - 2*SizeSZ
}

// BinFd returns the head of bin i's circular list.
func (a Arena) BinFd(i int) uintptr {
	return Chunk{Addr: a.BinSentinelAddr(i)}.Fd()
}

// BinBk returns the tail of bin i's circular list.
func (a Arena) BinBk(i int) uintptr {
	return Chunk{Addr: a.BinSentinelAddr(i)}.Bk()
}

// UnsortedBinSentinelAddr is BinSentinelAddr(1): the unsorted bin is always
// glibc bin index 1.
func (a Arena) UnsortedBinSentinelAddr() uintptr {
	return a.BinSentinelAddr(1)
}

// Next returns the arena linked-list "next" pointer.
func (a Arena) Next() uintptr {
	return uintptr(readWord(a.Addr + a.Offsets.Next))
}

// NextFree returns the arena linked-list "next_free" pointer (free-arena
// list, only threaded through arenas that have been fully released).
func (a Arena) NextFree() uintptr {
	return uintptr(readWord(a.Addr + a.Offsets.NextFree))
}

// SystemMem returns system_mem: total bytes sbrk'd/mmap'd for this arena.
func (a Arena) SystemMem() uint64 {
	return readWord(a.Addr + a.Offsets.SystemMem)
}
