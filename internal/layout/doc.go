// Package layout reads glibc heap structures (chunk headers, arena state,
// tcache bins) out of live process memory at fixed offsets.
//
// # Why offsets, not structs
//
// glibc does not export struct malloc_chunk, struct malloc_state, or
// struct tcache_perthread_struct from any public header, and their layout
// has shifted across releases (the tcache counts field alone has two
// on-disk widths, see TcacheLayout). Casting a Go struct over this memory
// would silently produce the wrong layout on a glibc version this package
// hasn't been taught about. Every read here goes through an explicit
// offset constant instead, the same discipline internal/format applies to
// REGF/HBIN/cell headers — so a version this package doesn't understand
// yet fails a probe check loudly rather than misreading a live pointer.
//
// # Ownership
//
// Nothing in this package allocates, frees, or otherwise mutates the
// addresses it's given, with one exception (Chunk.SetRawSize), which only
// tests call.
package layout
