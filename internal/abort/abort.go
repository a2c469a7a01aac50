// Package abort implements this module's one irreversible action: print a
// diagnostic line, then kill the process with SIGILL, the same signal the
// original reference implementation raises on detected heap corruption.
//
// A detected corruption is never surfaced as a Go error (see
// internal/diag's doc comment on why the abort path avoids anything with
// its own allocation). The signal must land on the calling thread, which
// rules out syscall.Kill (process-wide) and os.Signal (also process-wide) —
// the teacher's own transitive dependency, golang.org/x/sys/unix, is what
// makes Tgkill(pid, tid, sig) available, matching C's raise(SIGILL), which
// is specified as equivalent to pthread_kill(pthread_self(), sig).
package abort

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Fatal prints a diagnostic line to stderr and raises SIGILL on the calling
// thread. It does not return.
func Fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "shadowheap: CORRUPTION DETECTED: "+format+"\n", args...)
	os.Stderr.Sync() //nolint:errcheck

	tid := unix.Gettid()
	_ = unix.Tgkill(unix.Getpid(), tid, unix.SIGILL)

	// Tgkill should not return for SIGILL on the calling thread; this is a
	// backstop in case the signal is somehow blocked.
	select {}
}
