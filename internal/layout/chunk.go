// Package layout reads glibc's heap structures directly out of process
// memory by interpreting raw addresses at fixed offsets, the same way
// internal/format reads REGF/HBIN/cell headers out of a []byte buffer: no
// struct casting, explicit offset constants, explicit little-endian loads.
//
// Every function here takes a uintptr that must already point at memory this
// process owns (a pointer glibc itself handed out, or an address derived from
// one by a fixed offset). Nothing here allocates or frees.
package layout

import "unsafe"

// SizeSZ is INTERNAL_SIZE_T's width on every platform this monitor targets
// (LP64: x86-64, aarch64). 32-bit glibc heaps are out of scope.
const SizeSZ = 8

// MallocAlignment is glibc's minimum chunk alignment on LP64.
const MallocAlignment = 16

// Size-field flag bits (glibc malloc_chunk.mchunk_size low bits).
const (
	PrevInuse    = 0x1
	IsMmapped    = 0x2
	NonMainArena = 0x4
	SizeBits     = PrevInuse | IsMmapped | NonMainArena
)

// Chunk header field offsets, relative to the chunk's own address (not the
// user-visible memory pointer malloc returns).
const (
	OffPrevSize = 0
	OffSize     = SizeSZ
	OffFd       = 2 * SizeSZ
	OffBk       = 3 * SizeSZ
	OffFdNext   = 4 * SizeSZ
	OffBkNext   = 5 * SizeSZ
)

func readWord(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr)) //nolint:govet
}

func writeWord(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v //nolint:govet
}

// Chunk is a read-only view of a malloc_chunk header at a fixed address.
type Chunk struct {
	Addr uintptr
}

// AtMem builds a Chunk view from a pointer malloc/calloc/realloc returned to
// the caller (mem2chunk: subtract two size words).
func AtMem(mem uintptr) Chunk {
	return Chunk{Addr: mem - 2*SizeSZ}
}

// Mem returns the user-visible pointer for this chunk (chunk2mem).
func (c Chunk) Mem() uintptr {
	return c.Addr + 2*SizeSZ
}

// PrevSize reads mchunk_prev_size (only meaningful when the previous chunk is free).
func (c Chunk) PrevSize() uint64 {
	return readWord(c.Addr + OffPrevSize)
}

// RawSize reads mchunk_size including its low flag bits.
func (c Chunk) RawSize() uint64 {
	return readWord(c.Addr + OffSize)
}

// Size returns mchunk_size with the flag bits masked off.
func (c Chunk) Size() uint64 {
	return c.RawSize() &^ SizeBits
}

// PrevInUse reports whether the PREV_INUSE bit is set.
func (c Chunk) PrevInUse() bool {
	return c.RawSize()&PrevInuse != 0
}

// IsMmapped reports whether this chunk was obtained via mmap rather than
// from an arena's sbrk'd heap.
func (c Chunk) IsMmapped() bool {
	return c.RawSize()&IsMmapped != 0
}

// NonMainArena reports whether this chunk belongs to a thread arena rather
// than the main arena.
func (c Chunk) NonMainArena() bool {
	return c.RawSize()&NonMainArena != 0
}

// Fd reads the forward-link field. Only valid while the chunk is free.
func (c Chunk) Fd() uintptr {
	return uintptr(readWord(c.Addr + OffFd))
}

// Bk reads the backward-link field. Only valid while the chunk is free.
func (c Chunk) Bk() uintptr {
	return uintptr(readWord(c.Addr + OffBk))
}

// SetRawSize overwrites mchunk_size, flag bits included. Only tests call it:
// on fake chunk buffers, and in the facade test that corrupts a live chunk
// header on purpose.
func (c Chunk) SetRawSize(v uint64) {
	writeWord(c.Addr+OffSize, v)
}

// NextChunk returns the physically following chunk, computed from this
// chunk's own (flag-masked) size.
func (c Chunk) NextChunk() Chunk {
	return Chunk{Addr: c.Addr + uintptr(c.Size())}
}

// PrevChunk returns the physically preceding chunk. Only safe to call when
// c.PrevInUse() is false: otherwise mchunk_prev_size does not describe a
// real chunk and this computes garbage.
func (c Chunk) PrevChunk() Chunk {
	return Chunk{Addr: c.Addr - uintptr(c.PrevSize())}
}

// UsableSize returns the number of bytes available to the caller through
// Mem(), i.e. request2size's inverse: chunk size minus the header glibc
// keeps reserved (one size word, since the next chunk's prev_size overlaps
// the end of this one when PREV_INUSE is set there). A chunk serviced via
// mmap carries its own prev_size/size pair with no overlap into a following
// chunk, so two words are reserved instead of one.
func (c Chunk) UsableSize() uint64 {
	if c.IsMmapped() {
		return c.Size() - 2*SizeSZ
	}
	return c.Size() - SizeSZ
}

// Request2Size mirrors glibc's request2size macro: round a user request up
// to the smallest chunk size that can satisfy it.
func Request2Size(req uint64) uint64 {
	min := req + SizeSZ
	if min < MinChunkSize {
		return MinChunkSize
	}
	return (min + MallocAlignment - 1) &^ (MallocAlignment - 1)
}

// MinChunkSize is the smallest chunk glibc ever hands out: two size words
// plus two link-pointer slots, rounded to MallocAlignment.
const MinChunkSize = 4 * SizeSZ
