package monotonic

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, time.Duration(0), c.Offset())
}

// TestClock_Now_WithOffset verifies Now() applies the configured offset.
func TestClock_Now_WithOffset(t *testing.T) {
	c := NewClock()
	c.SetOffset(5 * time.Second)

	before := time.Now().Add(5 * time.Second)
	now := c.Now()
	after := time.Now().Add(5 * time.Second)

	assert.False(t, now.Before(before.Add(-10*time.Millisecond)))
	assert.False(t, now.After(after.Add(10*time.Millisecond)))
}

func TestClock_AdvanceAccumulates(t *testing.T) {
	c := NewClock()
	start := c.Now()

	c.Advance(time.Second)
	c.Advance(500 * time.Millisecond)

	assert.Equal(t, 1500*time.Millisecond, c.Offset())
	assert.GreaterOrEqual(t, c.Since(start), 1500*time.Millisecond)
}

func TestClock_SetOffsetOverridesAdvance(t *testing.T) {
	c := NewClock()
	c.Advance(time.Minute)
	c.SetOffset(-500 * time.Millisecond)
	assert.Equal(t, -500*time.Millisecond, c.Offset())
}

func TestClock_ConcurrentAccess(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50*time.Millisecond, c.Offset())
}
