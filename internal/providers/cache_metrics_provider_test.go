package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedCache_CountsHitsAndMisses(t *testing.T) {
	metrics := &mockMetrics{}
	cache := NewInstrumentedCacheProvider(cacheConfig(true, 1), nopLogger{}, metrics)

	_, ok := cache.Get("status")
	assert.False(t, ok)
	assert.Equal(t, 1, metrics.cacheMisses)

	cache.Set("status", []byte(`{"charging":false}`))
	val, ok := cache.Get("status")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"charging":false}`), val)
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestInstrumentedCache_DisabledSkipsWrapping(t *testing.T) {
	metrics := &mockMetrics{}
	cache := NewInstrumentedCacheProvider(cacheConfig(false, 1), nopLogger{}, metrics)

	// The noop cache misses by definition; phantom misses must not count.
	_, ok := cache.Get("status")
	assert.False(t, ok)
	assert.Zero(t, metrics.cacheMisses)
	assert.Zero(t, metrics.cacheHits)
}
