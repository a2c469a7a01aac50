package snapshot

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/shadowheap/monitor/internal/layout"
)

// TestWalkTcacheBin_CapsAtSevenSlots builds a real, uncorrupted 9-node
// singly-linked free list and asserts the walk still stops at 7: the count
// glibc reports for a bin is trusted as an upper bound, but 7 is a hard
// ceiling on top of that, independent of what the count says.
func TestWalkTcacheBin_CapsAtSevenSlots(t *testing.T) {
	buf := make([]byte, 4096)
	base := uintptr(unsafe.Pointer(&buf[0]))

	const n = 9
	var addrs [n]uintptr
	for i := 0; i < n; i++ {
		addrs[i] = base + uintptr(i)*64 + 32
	}
	for i := 0; i < n; i++ {
		var next uintptr
		if i+1 < n {
			next = addrs[i+1]
		}
		writeWord(addrs[i], next)
		writeWord(addrs[i]-layout.SizeSZ, 0x40|layout.PrevInuse)
	}

	out := walkTcacheBin(addrs[0], n)
	assert.Len(t, out, TcacheBinSize)
	for i, e := range out {
		assert.Equal(t, addrs[i], e.OrigPtr)
	}
}

func TestWalkTcacheBin_StopsEarlyOnNilNext(t *testing.T) {
	buf := make([]byte, 256)
	base := uintptr(unsafe.Pointer(&buf[0])) + 32
	writeWord(base, 0)
	writeWord(base-layout.SizeSZ, 0x20|layout.PrevInuse)

	out := walkTcacheBin(base, 7)
	assert.Len(t, out, 1)
}
