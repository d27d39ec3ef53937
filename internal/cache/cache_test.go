package cache

import (
	"fmt"
	"testing"

	"github.com/jeffreyzhou0924/trademe-detect/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(conf float64) classify.AnalysisResult {
	return classify.AnalysisResult{Confidence: conf, StrategyType: classify.TypeMACD}
}

func TestKeyStable(t *testing.T) {
	assert.Equal(t, Key("class S: pass"), Key("class S: pass"))
	assert.NotEqual(t, Key("class S: pass"), Key("class T: pass"))
}

func TestGetMissThenHit(t *testing.T) {
	c := New(4)

	_, ok := c.Get("k1")
	assert.False(t, ok)

	c.Put("k1", result(0.7))
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 0.7, got.Confidence)
}

func TestCapacityBound(t *testing.T) {
	const maxSize = 8
	const extra = 5
	c := New(maxSize)

	for i := 0; i < maxSize+extra; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(float64(i)))
	}

	assert.Equal(t, maxSize, c.Len())

	// The `extra` oldest entries are gone, the rest survive.
	for i := 0; i < extra; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.False(t, ok, "k%d should be evicted", i)
	}
	for i := extra; i < maxSize+extra; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should survive", i)
	}
}

func TestGetPromotes(t *testing.T) {
	c := New(2)

	c.Put("a", result(1))
	c.Put("b", result(2))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", result(3))

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestPutExistingRefreshes(t *testing.T) {
	c := New(2)

	c.Put("a", result(1))
	c.Put("b", result(2))
	c.Put("a", result(9)) // refresh, no growth, promotes "a"

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 9.0, got.Confidence)

	c.Put("c", result(3))
	_, ok = c.Get("b")
	assert.False(t, ok, "b was LRU after a's refresh")
}

func TestSnapshotCounters(t *testing.T) {
	c := New(1)

	c.Put("a", result(1))
	c.Get("a")
	c.Get("zzz")
	c.Put("b", result(2)) // evicts a

	st := c.Snapshot()
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, 1, st.Capacity)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Evictions)
}
