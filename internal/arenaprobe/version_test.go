package arenaprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadowheap/monitor/internal/layout"
)

func TestGlibcVersion_AtLeast230(t *testing.T) {
	assert.True(t, GlibcVersion{Major: 2, Minor: 30}.AtLeast230())
	assert.True(t, GlibcVersion{Major: 2, Minor: 35}.AtLeast230())
	assert.True(t, GlibcVersion{Major: 3, Minor: 0}.AtLeast230())
	assert.False(t, GlibcVersion{Major: 2, Minor: 29}.AtLeast230())
}

func TestGlibcVersion_AtLeast229(t *testing.T) {
	assert.True(t, GlibcVersion{Major: 2, Minor: 29}.AtLeast229())
	assert.False(t, GlibcVersion{Major: 2, Minor: 28}.AtLeast229())
}

func TestGlibcVersion_CountWidth(t *testing.T) {
	assert.Equal(t, layout.CountWidth8, GlibcVersion{Major: 2, Minor: 28}.CountWidth())
	assert.Equal(t, layout.CountWidth16, GlibcVersion{Major: 2, Minor: 30}.CountWidth())
}

func TestGlibcVersion_OffsetAdjustReferences(t *testing.T) {
	adjust, ok := GlibcVersion{Major: 2, Minor: 24}.OffsetAdjustReferences()
	assert.True(t, ok)
	assert.Equal(t, uintptr(0), adjust)

	adjust, ok = GlibcVersion{Major: 2, Minor: 25}.OffsetAdjustReferences()
	assert.True(t, ok)
	assert.Equal(t, uintptr(0), adjust)

	adjust, ok = GlibcVersion{Major: 2, Minor: 26}.OffsetAdjustReferences()
	assert.True(t, ok)
	assert.Equal(t, uintptr(8), adjust)

	adjust, ok = GlibcVersion{Major: 2, Minor: 39}.OffsetAdjustReferences()
	assert.True(t, ok)
	assert.Equal(t, uintptr(8), adjust)

	_, ok = GlibcVersion{Major: 2, Minor: 23}.OffsetAdjustReferences()
	assert.False(t, ok)

	_, ok = GlibcVersion{Major: 1, Minor: 9}.OffsetAdjustReferences()
	assert.False(t, ok)
}
