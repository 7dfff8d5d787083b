package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRfidEntry_BareString(t *testing.T) {
	rec, ok := NormalizeRfidEntry("CARD-1")
	require.True(t, ok)
	assert.Equal(t, "CARD-1", rec.ID)
	assert.Equal(t, UnknownUserID, rec.UserID)
}

func TestNormalizeRfidEntry_IDAliases(t *testing.T) {
	for _, key := range []string{"id", "rfidId", "rfid", "uid"} {
		rec, ok := NormalizeRfidEntry(map[string]any{key: "CARD-7"})
		require.True(t, ok, key)
		assert.Equal(t, "CARD-7", rec.ID, key)
	}
}

func TestNormalizeRfidEntry_OwnerAliases(t *testing.T) {
	for _, key := range []string{"userId", "ownerUid", "ownerId"} {
		rec, ok := NormalizeRfidEntry(map[string]any{"id": "CARD-7", key: "u42"})
		require.True(t, ok, key)
		assert.Equal(t, "u42", rec.UserID, key)
	}
}

func TestNormalizeRfidEntry_NumericID(t *testing.T) {
	rec, ok := NormalizeRfidEntry(map[string]any{"id": float64(123456789)})
	require.True(t, ok)
	assert.Equal(t, "123456789", rec.ID)
}

func TestNormalizeRfidEntry_Rejects(t *testing.T) {
	for name, entry := range map[string]any{
		"empty string":      "",
		"object without id": map[string]any{"userId": "u1"},
		"bare number":       float64(42),
		"nil":               nil,
	} {
		_, ok := NormalizeRfidEntry(entry)
		assert.False(t, ok, name)
	}
}

func TestNormalizeRfidEntry_MissingOwnerDefaults(t *testing.T) {
	rec, ok := NormalizeRfidEntry(map[string]any{"id": "CARD-9"})
	require.True(t, ok)
	assert.Equal(t, UnknownUserID, rec.UserID)
}
