package facade

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowheap/monitor/internal/layout"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	f := New()
	require.NoError(t, f.Init(os.Environ()))
	return f
}

func TestFacade_MallocFreeRoundTrip(t *testing.T) {
	f := newTestFacade(t)
	p := f.Malloc(128)
	require.NotZero(t, p)
	f.Free(p)
}

func TestFacade_CallocZeroed(t *testing.T) {
	f := newTestFacade(t)
	p := f.Calloc(16, 4)
	require.NotZero(t, p)
	got := make([]byte, 64)
	copyBytes(bytesAddr(got), p, 64)
	assert.Equal(t, make([]byte, 64), got)
	f.Free(p)
}

func TestFacade_ReallocPreservesContent(t *testing.T) {
	f := newTestFacade(t)
	p := f.Malloc(32)
	require.NotZero(t, p)

	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = byte(i)
	}
	copyBytes(p, uintptr(bytesAddr(buf)), 32)

	p2 := f.Realloc(p, 64)
	require.NotZero(t, p2)

	got := make([]byte, 32)
	copyBytes(uintptr(bytesAddr(got)), p2, 32)
	assert.Equal(t, buf, got)

	f.Free(p2)
}

// TestFacade_AbortsOnCorruption_Subprocess re-execs this test binary in a
// child process that deliberately corrupts a chunk's size field between
// allocation and free, and expects the child to die from SIGILL — the
// abort package's signal, not a returned error. This is the same
// re-exec-self pattern used across the ecosystem for testing os.Exit /
// fatal-signal paths that can't be observed in-process.
func TestFacade_AbortsOnCorruption_Subprocess(t *testing.T) {
	if os.Getenv("FACADE_TEST_CORRUPT_CHILD") == "1" {
		f := New()
		require.NoError(t, f.Init(os.Environ()))
		p := f.Malloc(64)
		require.NotZero(t, p)
		chunk := layout.AtMem(p)
		chunk.SetRawSize(chunk.RawSize() + 16) // corrupt without going through the facade
		f.Free(p)                              // must never return
		t.Fatal("expected abort before Free returned")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFacade_AbortsOnCorruption_Subprocess")
	// The switch must not carry the SHADOWHEAP_ prefix: modeconfig rejects
	// unknown SHADOWHEAP_ variables, which would fail the child in Init
	// before it ever reaches the corrupted Free.
	cmd.Env = append(os.Environ(), "FACADE_TEST_CORRUPT_CHILD=1")
	err := cmd.Run()
	require.Error(t, err, "child process should have been killed by SIGILL")

	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	assert.False(t, exitErr.Success())
}

func bytesAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return addrOfFirstByte(b)
}
