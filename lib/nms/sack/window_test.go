package sack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_DuplicateDetection(t *testing.T) {
	w := NewWindow(4)
	assert.True(t, w.Observe(10))
	assert.False(t, w.Observe(10))
	assert.True(t, w.Observe(8), "out of order but inside the window")
	assert.False(t, w.Observe(8))
}

func TestWindow_StaleIDsRejected(t *testing.T) {
	w := NewWindow(4)
	for id := uint16(0); id < 10; id++ {
		assert.True(t, w.Observe(id))
	}
	assert.Equal(t, 4, w.Len())
	assert.False(t, w.Observe(2), "far behind the highest id")
	assert.True(t, w.Contains(9))
	assert.False(t, w.Contains(5))
}

func TestWindow_Wraparound(t *testing.T) {
	w := NewWindow(8)
	assert.True(t, w.Observe(65534))
	assert.True(t, w.Observe(65535))
	assert.True(t, w.Observe(0))
	assert.False(t, w.Observe(65535))
	assert.True(t, w.Observe(1))
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(4)
	w.Observe(100)
	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.True(t, w.Observe(100))
	assert.False(t, w.Observe(3), "stale relative to the new highest id")
}
