// Package rawheap is the only package in this module that imports "C". Every
// other package operates on uintptr addresses handed to it by rawheap or by
// the facade, never touching dlsym or the C allocator symbols directly —
// the same layering bindings/ used to keep cgo out of the rest of the
// teacher's tree.
package rawheap
