package metastore

import "sort"

// OrderedStore keeps entries sorted by address in a single slice and
// resolves put/get/remove/update with binary search, grounded on
// MapMetaStore in the original (there backed by std::map, an ordered
// associative container). No example repo in the retrieved corpus vendors
// a balanced-tree/B-tree library, so rather than reach for one solely to
// grow this one back-end, the ordered contract is built directly on
// sort.Search: pointer addresses have a total order already, and a sorted
// slice gives the same O(log n) lookup and in-order iteration a tree would,
// at the cost of O(n) insertion instead of O(log n) — an acceptable
// trade for a back-end that exists mainly as an alternative to the default
// cached store, not as the hot path. See DESIGN.md for the full
// justification of this one stdlib-based back-end.
type OrderedStore struct {
	ptrs    []uintptr
	entries []Entry
}

// NewOrdered constructs an empty OrderedStore.
func NewOrdered() *OrderedStore {
	return &OrderedStore{}
}

func (s *OrderedStore) search(ptr uintptr) (int, bool) {
	i := sort.Search(len(s.ptrs), func(i int) bool { return s.ptrs[i] >= ptr })
	if i < len(s.ptrs) && s.ptrs[i] == ptr {
		return i, true
	}
	return i, false
}

func (s *OrderedStore) Put(ptr uintptr, meta Entry) bool {
	if ptr == 0 {
		return false
	}
	i, found := s.search(ptr)
	if found {
		return false
	}
	s.ptrs = append(s.ptrs, 0)
	s.entries = append(s.entries, Entry{})
	copy(s.ptrs[i+1:], s.ptrs[i:])
	copy(s.entries[i+1:], s.entries[i:])
	s.ptrs[i] = ptr
	s.entries[i] = meta
	return true
}

func (s *OrderedStore) Get(ptr uintptr) (Entry, bool) {
	if i, found := s.search(ptr); found {
		return s.entries[i], true
	}
	return Entry{}, false
}

func (s *OrderedStore) Remove(ptr uintptr, meta Entry) bool {
	i, found := s.search(ptr)
	if !found || !ptrSizeEqual(s.entries[i], meta) {
		return false
	}
	s.ptrs = append(s.ptrs[:i], s.ptrs[i+1:]...)
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

func (s *OrderedStore) Update(ptr uintptr, meta Entry) bool {
	i, found := s.search(ptr)
	if !found {
		return false
	}
	s.entries[i] = meta
	return true
}

func (s *OrderedStore) Size() int { return len(s.ptrs) }

func (s *OrderedStore) Reserve(n int) {
	if cap(s.ptrs) >= n {
		return
	}
	ptrs := make([]uintptr, len(s.ptrs), n)
	copy(ptrs, s.ptrs)
	entries := make([]Entry, len(s.entries), n)
	copy(entries, s.entries)
	s.ptrs, s.entries = ptrs, entries
}

func (s *OrderedStore) Clear() {
	s.ptrs = s.ptrs[:0]
	s.entries = s.entries[:0]
}
