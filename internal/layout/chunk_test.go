package layout

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChunk allocates a Go-owned buffer and returns a Chunk view over it,
// large enough to hold a full malloc_chunk header plus a small payload.
// The buffer must stay alive for the lifetime of the returned Chunk, so
// callers keep the backing slice referenced in a local variable.
func fakeChunk(t *testing.T, payload int) ([]byte, Chunk) {
	t.Helper()
	buf := make([]byte, 6*SizeSZ+payload+SizeSZ)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	require.Equal(t, uintptr(0), addr%8, "test buffer must be word aligned")
	return buf, Chunk{Addr: addr}
}

func TestChunk_SizeMasksFlagBits(t *testing.T) {
	buf, c := fakeChunk(t, 64)
	_ = buf
	c.SetRawSize(96 | PrevInuse)

	assert.Equal(t, uint64(96), c.Size())
	assert.True(t, c.PrevInUse())
	assert.False(t, c.IsMmapped())
	assert.False(t, c.NonMainArena())
}

func TestChunk_NextChunkFollowsSize(t *testing.T) {
	buf, c := fakeChunk(t, 64)
	_ = buf
	c.SetRawSize(96 | PrevInuse)

	next := c.NextChunk()
	assert.Equal(t, c.Addr+96, next.Addr)
}

func TestChunk_MemRoundTrip(t *testing.T) {
	buf, c := fakeChunk(t, 64)
	_ = buf

	mem := c.Mem()
	assert.Equal(t, c.Addr+2*SizeSZ, mem)
	assert.Equal(t, c.Addr, AtMem(mem).Addr)
}

func TestChunk_UsableSize(t *testing.T) {
	buf, c := fakeChunk(t, 64)
	_ = buf
	c.SetRawSize(96 | PrevInuse)

	assert.Equal(t, uint64(88), c.UsableSize())
}

func TestRequest2Size_RoundsUpToAlignment(t *testing.T) {
	cases := []struct {
		req  uint64
		want uint64
	}{
		{0, MinChunkSize},
		{1, MinChunkSize},
		{24, MinChunkSize},
		{25, 48},
		{40, 48},
		{41, 64},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Request2Size(tc.req), "req=%d", tc.req)
	}
}

func TestTcacheLayout_EntriesOffsetByWidth(t *testing.T) {
	l8 := NewTcacheLayout(CountWidth8)
	l16 := NewTcacheLayout(CountWidth16)

	// counts[64] bytes wide -> already 8-aligned, 64 bytes.
	assert.Equal(t, uintptr(64), l8.EntriesOff)
	// counts[64] uint16 wide -> 128 bytes, already 8-aligned.
	assert.Equal(t, uintptr(128), l16.EntriesOff)
}
