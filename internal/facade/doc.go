// Package facade serializes every intercepted call behind a single mutex
// and treats rawheap.Depth() > 1 as "this call was made by the runtime's
// own internals, not application code" — in that case it forwards straight
// to rawheap without touching the shadow state, mirroring hookinfo.h's
// recursive_checked_* early-out.
package facade
