// Package shadowheap's Monitor is intentionally the only exported type: a
// process runs one, constructed once at startup before any allocator
// interposition begins, exactly as facade.Facade expects.
package shadowheap
