// Package arenaprobe finds addresses glibc keeps entirely internal by
// watching how the allocator responds to a deliberately constructed
// sequence of malloc/free calls, rather than by reading any symbol table
// or debug metadata. Every probe here assumes it runs before any other
// part of this module has recorded shadow state, and that it is not itself
// racing application allocations on another thread — the facade calls Run
// once during Init, before installing itself as the active interceptor.
package arenaprobe
