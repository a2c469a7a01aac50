// Package snapshot's three record types are independent: the facade stores
// and checks each one separately, gated by its own
// SHADOWHEAP_DISABLE_*CHECKS switch (internal/modeconfig), so disabling
// tcache checking on an older glibc doesn't also disable top-chunk or
// unsorted-bin checking.
package snapshot
