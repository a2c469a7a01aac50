package layout

import "unsafe"

// TcacheMaxBins is TCACHE_MAX_BINS in glibc (malloc/malloc.c), fixed since
// tcache was introduced in 2.26 and unchanged since.
const TcacheMaxBins = 64

// CountWidth selects between the two on-disk shapes of
// tcache_perthread_struct.counts[]: a byte per bin before glibc 2.30, a
// uint16 per bin from 2.30 onward (glibc commit 6e229b2cb04f4), after
// counts were widened to let a bin hold more than 255 entries.
type CountWidth int

const (
	CountWidth8 CountWidth = 1
	CountWidth16 CountWidth = 2
)

// TcacheLayout describes the on-disk shape of tcache_perthread_struct for
// the resolved glibc version.
type TcacheLayout struct {
	CountsWidth CountWidth
	EntriesOff  uintptr // offset of entries[0] from the struct base
}

// NewTcacheLayout picks the layout for a given counts width. entries[]
// starts right after counts[TCACHE_MAX_BINS], rounded up to pointer
// alignment (entries is an array of pointers, so the struct is naturally
// padded there by the compiler).
func NewTcacheLayout(w CountWidth) TcacheLayout {
	raw := uintptr(TcacheMaxBins) * uintptr(w)
	aligned := (raw + SizeSZ - 1) &^ (SizeSZ - 1)
	return TcacheLayout{CountsWidth: w, EntriesOff: aligned}
}

// Count reads counts[bin] at the given tcache struct base.
func (l TcacheLayout) Count(base uintptr, bin int) int {
	off := base + uintptr(bin)*uintptr(l.CountsWidth)
	switch l.CountsWidth {
	case CountWidth8:
		return int(*(*uint8)(unsafe.Pointer(off)))
	default:
		return int(*(*uint16)(unsafe.Pointer(off)))
	}
}

// Entry returns the head pointer of the free-list for bin i.
func (l TcacheLayout) Entry(base uintptr, bin int) uintptr {
	return uintptr(readWord(base + l.EntriesOff + uintptr(bin)*SizeSZ))
}

// TcacheEntry is a view of a live tcache_entry node: { next; key; }, sitting
// at the chunk's user-visible memory address (tcache entries are threaded
// through the free chunk's own payload, like fastbin/fd but with an extra
// key word since glibc 2.29's double-free hardening).
type TcacheEntry struct {
	Addr uintptr // = chunk Mem()
}

func (e TcacheEntry) Next() uintptr {
	return uintptr(readWord(e.Addr))
}

func (e TcacheEntry) Key() uintptr {
	return uintptr(readWord(e.Addr + SizeSZ))
}
