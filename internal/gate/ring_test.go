package gate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingContainsInsert(t *testing.T) {
	r := NewRing(10)

	assert.False(t, r.Contains("a"))
	r.Insert("a")
	assert.True(t, r.Contains("a"))

	// Re-insert is a no-op
	r.Insert("a")
	assert.Equal(t, 1, r.Len())
}

func TestRingEvictionKeepsRecentHalf(t *testing.T) {
	r := NewRing(1000)

	for i := 0; i < 1001; i++ {
		r.Insert(fmt.Sprintf("id-%d", i))
	}

	// Overflow trims down to the most recent 500.
	assert.Equal(t, 500, r.Len())
	assert.False(t, r.Contains("id-0"))
	assert.False(t, r.Contains("id-500"))
	assert.True(t, r.Contains("id-501"))
	assert.True(t, r.Contains("id-1000"))
}

func TestRingSmallCapacity(t *testing.T) {
	r := NewRing(4)

	for i := 0; i < 100; i++ {
		r.Insert(fmt.Sprintf("id-%d", i))
	}

	assert.LessOrEqual(t, r.Len(), 4)
	assert.True(t, r.Contains("id-99"))
}
