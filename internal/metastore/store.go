// Package metastore is the per-pointer metadata table the facade consults
// on every intercepted free/realloc: "what size did we last record for this
// address". It mirrors store/metastore.h's contract almost exactly —
// put/get/remove/update/size/reserve/clear — with four interchangeable
// back-ends behind the same interface, matching VectorMetaStore,
// MapMetaStore, UnorderedMapMetaStore, and CachedMetaStore in the original.
//
// # Why no internal-allocator parameter
//
// The C++ original parameterizes every store on an InternalAllocator that
// bypasses the hooked malloc/free so the store's own growth never recurses
// back into the hook it's supporting. That hazard doesn't exist here: these
// stores grow using Go's own runtime allocator (append, make, swiss.Map's
// internal growth), which lives on a heap entirely separate from the glibc
// heap internal/rawheap calls into. A slice growing inside this package
// never touches the C allocator this module is watching, so there is
// nothing to bypass — see DESIGN.md for the fuller note.
package metastore

import "github.com/shadowheap/monitor/internal/layout"

// Entry is the metadata recorded for one live pointer: a chunk size word at
// the instant it was recorded. The store keeps whatever word the caller
// passes, flag bits included; the facade passes layout.Chunk.Size(), so the
// entries it records carry no flag bits.
type Entry struct {
	Size uint64
}

// ptrSizeEqual reports whether a and b describe the same chunk length,
// ignoring the low flag bits — PREV_INUSE in particular can flip on a
// chunk's neighbor coalescing without this chunk itself being touched.
func ptrSizeEqual(a, b Entry) bool {
	return a.Size&^layout.SizeBits == b.Size&^layout.SizeBits
}

// Store is the contract every back-end implements.
type Store interface {
	// Put inserts meta for ptr if ptr is non-null and no live entry
	// already exists at that key. Reports whether the insert happened.
	Put(ptr uintptr, meta Entry) bool
	// Get returns the recorded entry for ptr, if any.
	Get(ptr uintptr) (Entry, bool)
	// Remove deletes the entry for ptr if the stored entry is
	// ptr-size-equal to meta, reporting whether it did.
	Remove(ptr uintptr, meta Entry) bool
	// Update mutates the entry for ptr in place, reporting whether one
	// existed to update.
	Update(ptr uintptr, meta Entry) bool
	// Size returns the number of live entries.
	Size() int
	// Reserve hints at an expected entry count, for back-ends that
	// preallocate.
	Reserve(n int)
	// Clear removes every entry.
	Clear()
}
