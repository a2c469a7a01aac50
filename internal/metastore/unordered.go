package metastore

import "github.com/dolthub/swiss"

// UnorderedStore wraps a SwissTable hash map, grounded on
// UnorderedMapMetaStore in the original (there backed by
// std::unordered_map) and on vkngwrapper-arsenal/memutils/metadata/tlsf.go,
// the example repo that uses github.com/dolthub/swiss for the same
// allocation-handle-to-metadata shape this store has.
type UnorderedStore struct {
	m *swiss.Map[uintptr, Entry]
}

// NewUnordered constructs an UnorderedStore with a small starting capacity.
func NewUnordered() *UnorderedStore {
	return &UnorderedStore{m: swiss.NewMap[uintptr, Entry](64)}
}

func (s *UnorderedStore) Put(ptr uintptr, meta Entry) bool {
	if ptr == 0 {
		return false
	}
	if _, ok := s.m.Get(ptr); ok {
		return false
	}
	s.m.Put(ptr, meta)
	return true
}

func (s *UnorderedStore) Get(ptr uintptr) (Entry, bool) {
	return s.m.Get(ptr)
}

func (s *UnorderedStore) Remove(ptr uintptr, meta Entry) bool {
	existing, ok := s.m.Get(ptr)
	if !ok || !ptrSizeEqual(existing, meta) {
		return false
	}
	return s.m.Delete(ptr)
}

func (s *UnorderedStore) Update(ptr uintptr, meta Entry) bool {
	if _, ok := s.m.Get(ptr); !ok {
		return false
	}
	s.m.Put(ptr, meta)
	return true
}

func (s *UnorderedStore) Size() int { return s.m.Count() }

func (s *UnorderedStore) Reserve(n int) {
	// swiss.Map grows on its own; there is no public presize hook beyond
	// construction, so Reserve is a documented no-op past the initial
	// capacity passed to NewMap.
	_ = n
}

func (s *UnorderedStore) Clear() {
	s.m.Clear()
}
