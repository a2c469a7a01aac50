// Package rawheap resolves and calls the real, un-intercepted allocator
// entry points (malloc/calloc/realloc/free) that LD_PRELOAD would otherwise
// shadow with this process's own symbols.
//
// This mirrors bindings/wrapper.go's approach to a generated C library: cgo
// at the boundary, unsafe.Pointer/uintptr punning to cross it, a thin Go
// type wrapping the raw handle. There the C side was a real hivex.so; here
// it's glibc itself, reached via dlsym(RTLD_NEXT, ...) instead of a linked
// library, so the "binding" is four raw dlsym calls rather than generated
// glue.
package rawheap

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include <dlfcn.h>
#include <string.h>
#include <malloc.h>
#include <gnu/libc-version.h>

static void *shadowheap_real_malloc  = NULL;
static void *shadowheap_real_calloc  = NULL;
static void *shadowheap_real_realloc = NULL;
static void *shadowheap_real_free    = NULL;

// callocbase backs recursive calloc calls made by the dynamic loader while
// resolving the four symbols above, before shadowheap_real_calloc itself is
// known. glibc's own dlsym implementation calls calloc internally on the
// first lookup in a thread; without a fallback that call would recurse into
// this same resolver forever. 1000 bytes matches the original reference
// implementation's fixed buffer, sized comfortably above what dlsym's own
// bookkeeping allocations need.
static char callocbase[1000];
static size_t callocbase_used = 0;

static __thread int shadowheap_in_resolve = 0;

static void *shadowheap_calloc_bootstrap(size_t nmemb, size_t size) {
    size_t total = nmemb * size;
    if (callocbase_used + total > sizeof(callocbase)) {
        return NULL;
    }
    void *p = callocbase + callocbase_used;
    callocbase_used += total;
    memset(p, 0, total);
    return p;
}

static void shadowheap_resolve_all(void) {
    if (shadowheap_real_malloc && shadowheap_real_calloc &&
        shadowheap_real_realloc && shadowheap_real_free) {
        return;
    }
    if (shadowheap_in_resolve) {
        return;
    }
    shadowheap_in_resolve = 1;
    if (!shadowheap_real_calloc) {
        // calloc is resolved first: dlsym's own first call on a thread may
        // itself call calloc, and until real_calloc is set that call must
        // land in the bootstrap buffer, not recurse back into dlsym.
        shadowheap_real_calloc = dlsym(RTLD_NEXT, "calloc");
    }
    if (!shadowheap_real_malloc) {
        shadowheap_real_malloc = dlsym(RTLD_NEXT, "malloc");
    }
    if (!shadowheap_real_realloc) {
        shadowheap_real_realloc = dlsym(RTLD_NEXT, "realloc");
    }
    if (!shadowheap_real_free) {
        shadowheap_real_free = dlsym(RTLD_NEXT, "free");
    }
    shadowheap_in_resolve = 0;
}

typedef void *(*malloc_fn)(size_t);
typedef void *(*calloc_fn)(size_t, size_t);
typedef void *(*realloc_fn)(void *, size_t);
typedef void (*free_fn)(void *);

static void *shadowheap_call_malloc(size_t size) {
    shadowheap_resolve_all();
    if (!shadowheap_real_malloc) return NULL;
    return ((malloc_fn)shadowheap_real_malloc)(size);
}

static void *shadowheap_call_calloc(size_t nmemb, size_t size) {
    if (!shadowheap_real_calloc) {
        if (shadowheap_in_resolve) {
            return shadowheap_calloc_bootstrap(nmemb, size);
        }
        shadowheap_resolve_all();
    }
    if (!shadowheap_real_calloc) {
        return shadowheap_calloc_bootstrap(nmemb, size);
    }
    return ((calloc_fn)shadowheap_real_calloc)(nmemb, size);
}

static void *shadowheap_call_realloc(void *ptr, size_t size) {
    shadowheap_resolve_all();
    if (!shadowheap_real_realloc) return NULL;
    return ((realloc_fn)shadowheap_real_realloc)(ptr, size);
}

static void shadowheap_call_free(void *ptr) {
    shadowheap_resolve_all();
    if (!shadowheap_real_free) return;
    ((free_fn)shadowheap_real_free)(ptr);
}

static int shadowheap_is_bootstrap_ptr(void *ptr) {
    return ptr >= (void *)callocbase && ptr < (void *)(callocbase + sizeof(callocbase));
}

static int shadowheap_mallopt(int param, int value) {
    return mallopt(param, value);
}

static const char *shadowheap_libc_version(void) {
    return gnu_get_libc_version();
}
*/
import "C"

import (
	"sync/atomic"
	"unsafe"
)

// reentrant counts reentrant calls into this package. Go doesn't expose a
// cheap true thread-local the way the C side's __thread does, so this is a
// single process-wide counter rather than a per-thread one: Enter/Leave and
// RecursiveCheckedMalloc/RecursiveCheckedCalloc below all update it, and
// the depth they report counts calls on every thread.
var reentrant int64

// Enter marks entry into a hook body, mirroring hookinfo.h's recursion
// counter. Returns the depth after incrementing; a depth > 1 means this
// call was made from inside another hook's own bookkeeping.
func Enter() int64 { return atomic.AddInt64(&reentrant, 1) }

// Leave marks exit from a hook body.
func Leave() { atomic.AddInt64(&reentrant, -1) }

// Depth reports the current reentrancy depth without mutating it.
func Depth() int64 { return atomic.LoadInt64(&reentrant) }

// Malloc calls the real, un-intercepted malloc.
func Malloc(size uintptr) uintptr {
	return uintptr(C.shadowheap_call_malloc(C.size_t(size)))
}

// Calloc calls the real, un-intercepted calloc.
func Calloc(nmemb, size uintptr) uintptr {
	return uintptr(C.shadowheap_call_calloc(C.size_t(nmemb), C.size_t(size)))
}

// Realloc calls the real, un-intercepted realloc.
func Realloc(ptr uintptr, size uintptr) uintptr {
	return uintptr(C.shadowheap_call_realloc(unsafe.Pointer(ptr), C.size_t(size))) //nolint:govet
}

// Free calls the real, un-intercepted free.
func Free(ptr uintptr) {
	C.shadowheap_call_free(unsafe.Pointer(ptr)) //nolint:govet
}

// IsBootstrapPointer reports whether ptr was served out of the fixed
// callocbase buffer rather than by the real allocator — such a pointer must
// never be passed to Free or Realloc.
func IsBootstrapPointer(ptr uintptr) bool {
	return C.shadowheap_is_bootstrap_ptr(unsafe.Pointer(ptr)) != 0 //nolint:govet
}

// RecursiveCheckedMalloc calls Malloc while tracking hook reentrancy,
// returning the raw pointer and the depth observed at call time (1 for an
// outermost call). The facade does not call it: its Malloc and Calloc call
// Malloc/Calloc directly and consult Depth().
func RecursiveCheckedMalloc(size uintptr) (ptr uintptr, depth int64) {
	depth = Enter()
	defer Leave()
	return Malloc(size), depth
}

// RecursiveCheckedCalloc is Calloc's counterpart to RecursiveCheckedMalloc.
func RecursiveCheckedCalloc(nmemb, size uintptr) (ptr uintptr, depth int64) {
	depth = Enter()
	defer Leave()
	return Calloc(nmemb, size), depth
}

// Mallopt calls glibc's mallopt directly. Unlike malloc/calloc/realloc/free
// this is never intercepted by an LD_PRELOAD shim in practice, so it's
// called straight against libc rather than through dlsym(RTLD_NEXT, ...).
func Mallopt(param, value int) bool {
	return C.shadowheap_mallopt(C.int(param), C.int(value)) != 0
}

// LibcVersion returns glibc's own version string (e.g. "2.35").
func LibcVersion() string {
	return C.GoString(C.shadowheap_libc_version())
}
