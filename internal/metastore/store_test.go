package metastore

import (
	"testing"

	"github.com/shadowheap/monitor/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStores() map[string]Store {
	return map[string]Store{
		"linear":    NewLinear(),
		"ordered":   NewOrdered(),
		"unordered": NewUnordered(),
		"cached":    NewCached(),
	}
}

func TestStore_PutGetRemove(t *testing.T) {
	for name, s := range allStores() {
		t.Run(name, func(t *testing.T) {
			s.Put(0x1000, Entry{Size: 64})
			s.Put(0x2000, Entry{Size: 128})

			got, ok := s.Get(0x1000)
			require.True(t, ok)
			assert.Equal(t, uint64(64), got.Size)

			assert.Equal(t, 2, s.Size())

			assert.True(t, s.Remove(0x1000, Entry{Size: 64}))
			_, ok = s.Get(0x1000)
			assert.False(t, ok)
			assert.Equal(t, 1, s.Size())

			assert.False(t, s.Remove(0x1000, Entry{Size: 64}))
		})
	}
}

func TestStore_PutRejectsExistingKey(t *testing.T) {
	for name, s := range allStores() {
		t.Run(name, func(t *testing.T) {
			assert.True(t, s.Put(0x1000, Entry{Size: 64}))
			assert.False(t, s.Put(0x1000, Entry{Size: 128}))
			got, ok := s.Get(0x1000)
			require.True(t, ok)
			assert.Equal(t, uint64(64), got.Size, "a rejected Put must not overwrite the live entry")
		})
	}
}

func TestStore_RemoveIsFlagInsensitive(t *testing.T) {
	for name, s := range allStores() {
		t.Run(name, func(t *testing.T) {
			s.Put(0x3000, Entry{Size: 0x40 | layout.PrevInuse})

			assert.False(t, s.Remove(0x3000, Entry{Size: 0x50}), "a size differing in a non-flag bit must not match")
			_, ok := s.Get(0x3000)
			require.True(t, ok, "a failed remove must leave the entry in place")

			assert.True(t, s.Remove(0x3000, Entry{Size: 0x40}), "a size matching once flag bits are stripped must match")
			_, ok = s.Get(0x3000)
			assert.False(t, ok)
		})
	}
}

func TestStore_UpdateRequiresExisting(t *testing.T) {
	for name, s := range allStores() {
		t.Run(name, func(t *testing.T) {
			assert.False(t, s.Update(0x1234, Entry{Size: 8}))
			s.Put(0x1234, Entry{Size: 8})
			assert.True(t, s.Update(0x1234, Entry{Size: 16}))
			got, _ := s.Get(0x1234)
			assert.Equal(t, uint64(16), got.Size)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, s := range allStores() {
		t.Run(name, func(t *testing.T) {
			s.Put(0x1, Entry{Size: 1})
			s.Put(0x2, Entry{Size: 2})
			s.Clear()
			assert.Equal(t, 0, s.Size())
		})
	}
}

func TestCachedStore_EvictsIntoFallbackWhenBinFull(t *testing.T) {
	s := newCachedWithBins(1) // force every key into the same bin
	for i := uintptr(1); i <= binWidth+2; i++ {
		s.Put(i*8, Entry{Size: uint64(i)})
	}
	assert.Equal(t, binWidth+2, s.Size())
	for i := uintptr(1); i <= binWidth+2; i++ {
		got, ok := s.Get(i * 8)
		require.True(t, ok, "key %d should be retrievable from bin or fallback", i)
		assert.Equal(t, uint64(i), got.Size)
	}
}

func TestCachedStore_ReserveGrowsAndPreservesEntries(t *testing.T) {
	s := newCachedWithBins(2)
	for i := uintptr(1); i <= 40; i++ {
		s.Put(i*16, Entry{Size: uint64(i)})
	}
	before := s.Size()
	s.Reserve(256)
	assert.GreaterOrEqual(t, s.binCount, 64)
	assert.Equal(t, before, s.Size())
	for i := uintptr(1); i <= 40; i++ {
		got, ok := s.Get(i * 16)
		require.True(t, ok)
		assert.Equal(t, uint64(i), got.Size)
	}
}
