package snapshot

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/shadowheap/monitor/internal/layout"
)

func fakeArenaOverTopWord(buf []byte) layout.Arena {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	offsets := layout.StandardOffsets(8)
	return layout.Arena{Addr: addr, Offsets: offsets}
}

func TestTopSnapshot_DetectsSizeChangeAtSameAddress(t *testing.T) {
	buf := make([]byte, 4096)
	a := fakeArenaOverTopWord(buf)

	topAddr := a.Addr + 1024
	*(*uint64)(unsafe.Pointer(a.Addr + a.Offsets.Top)) = uint64(topAddr)
	*(*uint64)(unsafe.Pointer(topAddr + layout.OffSize)) = 4096 | layout.PrevInuse

	var s TopSnapshot
	s.Store(a)

	ok, _, _, _ := s.Check(a)
	assert.True(t, ok)

	// Corrupt the top chunk's size in place without moving it.
	*(*uint64)(unsafe.Pointer(topAddr + layout.OffSize)) = 8192 | layout.PrevInuse

	ok, liveAddr, liveSize, storedSize := s.Check(a)
	assert.False(t, ok)
	assert.Equal(t, topAddr, liveAddr)
	assert.Equal(t, uint64(8192), liveSize)
	assert.Equal(t, uint64(4096), storedSize)
}

func TestTopSnapshot_AllowsMoveWithoutFlagging(t *testing.T) {
	buf := make([]byte, 8192)
	a := fakeArenaOverTopWord(buf)

	topAddr := a.Addr + 1024
	*(*uint64)(unsafe.Pointer(a.Addr + a.Offsets.Top)) = uint64(topAddr)
	*(*uint64)(unsafe.Pointer(topAddr + layout.OffSize)) = 2048 | layout.PrevInuse

	var s TopSnapshot
	s.Store(a)

	newTop := a.Addr + 4096
	*(*uint64)(unsafe.Pointer(a.Addr + a.Offsets.Top)) = uint64(newTop)
	*(*uint64)(unsafe.Pointer(newTop + layout.OffSize)) = 3072 | layout.PrevInuse

	ok, liveAddr, _, _ := s.Check(a)
	assert.True(t, ok, "a moved top chunk (sbrk growth) must not be flagged as corruption")
	assert.Equal(t, newTop, liveAddr)
}
