package snapshot

import "github.com/shadowheap/monitor/internal/layout"

// UnsortedBinEntriesMax bounds how far the unsorted-bin walk goes before
// giving up, matching USB_ENTRIES_MAX in the original: the unsorted bin is
// meant to be drained quickly by the next malloc's sorting pass, so a
// healthy process never parks more than a handful of chunks there.
const UnsortedBinEntriesMax = 128

// UnsortedEntry is one chunk recorded out of the unsorted bin's list. All
// four fields are compared on Check: a mismatch of fd or bk alone (with Addr
// and Size untouched) is exactly what an unlink-style attack produces.
type UnsortedEntry struct {
	Addr uintptr
	Size uint64
	Fd   uintptr
	Bk   uintptr
}

// UnsortedSnapshot is the shadow record for the unsorted bin's contents.
type UnsortedSnapshot struct {
	entries []UnsortedEntry
}

// Store walks the unsorted bin's circular list from the arena sentinel and
// records every chunk's address, size, fd and bk, stopping after
// UnsortedBinEntriesMax entries. Chunks past that bound are neither recorded
// nor compared by Check, and reaching the bound is not reported.
func (s *UnsortedSnapshot) Store(a layout.Arena) {
	s.entries = walkUnsortedBin(a)
}

func walkUnsortedBin(a layout.Arena) []UnsortedEntry {
	sentinel := a.UnsortedBinSentinelAddr()
	head := a.BinFd(1)

	var out []UnsortedEntry
	cur := head
	for cur != sentinel && len(out) < UnsortedBinEntriesMax {
		c := layout.Chunk{Addr: cur}
		out = append(out, UnsortedEntry{Addr: cur, Size: c.Size(), Fd: c.Fd(), Bk: c.Bk()})
		cur = c.Fd()
	}
	return out
}

// Check re-walks the unsorted bin and reports the first mismatch against
// the stored snapshot: either a count mismatch or a specific entry whose
// address, size, fd or bk no longer agrees with the shadow copy, along with
// the stored record of the entry before it in the list (when there is one).
type UnsortedMismatch struct {
	Index      int
	Live       UnsortedEntry
	Stored     UnsortedEntry
	PrevStored UnsortedEntry
	HasPrev    bool
}

func (s *UnsortedSnapshot) Check(a layout.Arena) (ok bool, mismatch UnsortedMismatch) {
	live := walkUnsortedBin(a)
	if len(live) != len(s.entries) {
		return false, UnsortedMismatch{Index: -1}
	}
	for i := range live {
		if live[i] != s.entries[i] {
			m := UnsortedMismatch{Index: i, Live: live[i], Stored: s.entries[i]}
			if i > 0 {
				m.PrevStored = s.entries[i-1]
				m.HasPrev = true
			}
			return false, m
		}
	}
	return true, UnsortedMismatch{}
}
