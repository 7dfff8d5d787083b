package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/structures"
)

type nopLogger struct{}

func (nopLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Debugf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Close()                                        {}

func cacheConfig(enabled bool, sizeMB int) *structures.Config {
	return &structures.Config{
		Cache:     structures.CacheConfig{Enabled: enabled, Size: sizeMB},
		Telemetry: structures.TelemetryConfig{Interval: time.Second},
	}
}

func TestCacheProvider_SetGet(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 1), nopLogger{})

	cache.Set("status", []byte(`{"charging":true}`))
	val, ok := cache.Get("status")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"charging":true}`), val)
}

func TestCacheProvider_MissingKey(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 1), nopLogger{})
	_, ok := cache.Get("nothing")
	assert.False(t, ok)
}

func TestCacheProvider_DisabledIsNoop(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(false, 1), nopLogger{})
	cache.Set("status", []byte("x"))
	_, ok := cache.Get("status")
	assert.False(t, ok)
}

func TestCacheProvider_ZeroSizeIsNoop(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 0), nopLogger{})
	cache.Set("status", []byte("x"))
	_, ok := cache.Get("status")
	assert.False(t, ok)
}

func TestUnsafeStringToBytes(t *testing.T) {
	assert.Nil(t, unsafeStringToBytes(""))
	assert.Equal(t, []byte("status"), unsafeStringToBytes("status"))
}
