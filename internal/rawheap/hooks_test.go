package rawheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallocFreeRoundTrip(t *testing.T) {
	p := Malloc(128)
	require.NotZero(t, p)
	Free(p)
}

func TestCallocZeroesMemory(t *testing.T) {
	p, depth := RecursiveCheckedCalloc(16, 1)
	require.NotZero(t, p)
	assert.Equal(t, int64(1), depth)
	assert.Equal(t, make([]byte, 16), append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(p)), 16)...)) //nolint:govet
	Free(p)
}

func TestReentrancyDepthTracksNesting(t *testing.T) {
	assert.Equal(t, int64(0), Depth())
	d1 := Enter()
	assert.Equal(t, int64(1), d1)
	d2 := Enter()
	assert.Equal(t, int64(2), d2)
	Leave()
	assert.Equal(t, int64(1), Depth())
	Leave()
	assert.Equal(t, int64(0), Depth())
}

func TestReallocGrowsAllocation(t *testing.T) {
	p := Malloc(16)
	require.NotZero(t, p)
	p2 := Realloc(p, 256)
	require.NotZero(t, p2)
	Free(p2)
}
