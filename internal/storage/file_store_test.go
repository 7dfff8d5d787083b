package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/models"
	"chargersim/internal/testutil"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(compressor.Close)

	store, err := NewFileStore(t.TempDir(), compressor, &testutil.MockLogger{}, testutil.NewMockMetrics())
	require.NoError(t, err)
	return store
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	var out []models.RfidRecord
	found, err := store.Load(KeyRfids, &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, out)
}

func TestSaveLoad_PlainBlob(t *testing.T) {
	store := newTestStore(t)
	in := []models.RfidRecord{
		{Number: 1, ID: "CARD-1", UserID: "u1"},
		{Number: 2, ID: "CARD-2", UserID: "unknown"},
	}
	require.NoError(t, store.Save(KeyRfids, in))

	var out []models.RfidRecord
	found, err := store.Load(KeyRfids, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestSaveLoad_SessionLogIsCompressed(t *testing.T) {
	store := newTestStore(t)
	in := []*models.ChargingSession{
		{SessionID: "session_000000001", Status: models.SessionCompleted, EnergyKWh: 1.25, Unsynced: true},
	}
	require.NoError(t, store.Save(KeySessions, in))

	path := filepath.Join(store.dir, "sessions.json.zst")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "session_000000001")

	var out []*models.ChargingSession
	found, err := store.Load(KeySessions, &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, out, 1)
	assert.Equal(t, "session_000000001", out[0].SessionID)
	assert.True(t, out[0].Unsynced)
}

func TestSave_OverwritesAtomically(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(KeyNetwork, models.NetworkConfig{Mode: "hotspot"}))
	require.NoError(t, store.Save(KeyNetwork, models.NetworkConfig{Mode: "wifi", SSID: "HomeNet"}))

	var out models.NetworkConfig
	found, err := store.Load(KeyNetwork, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "wifi", out.Mode)

	// No tmp files are left behind.
	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestSave_ObservesPersistenceMetric(t *testing.T) {
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(compressor.Close)
	metrics := testutil.NewMockMetrics()
	store, err := NewFileStore(t.TempDir(), compressor, &testutil.MockLogger{}, metrics)
	require.NoError(t, err)

	require.NoError(t, store.Save(KeyDevice, models.DeviceSnapshot{SessionCounter: 3}))
	assert.Equal(t, 1, metrics.PersistenceObs)
}
