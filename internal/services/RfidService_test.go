package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/models"
	"chargersim/internal/testutil"
)

type rfidFixture struct {
	device   *models.DeviceStateStore
	store    *testutil.MockStore
	sink     *testutil.MockBroadcaster
	sessions SessionServiceInterface
	svc      RfidServiceInterface
}

func newRfidFixture() *rfidFixture {
	device := models.NewDeviceStateStore()
	store := testutil.NewMockStore()
	sink := &testutil.MockBroadcaster{}
	relay := NewBroadcastRelay()
	relay.Bind(sink)
	logger := &testutil.MockLogger{}
	sessions := NewSessionService(device, store, relay, logger, testutil.NewMockMetrics())
	return &rfidFixture{
		device:   device,
		store:    store,
		sink:     sink,
		sessions: sessions,
		svc:      NewRfidService(sessions, store, logger),
	}
}

func TestAdd_AssignsSequentialNumbers(t *testing.T) {
	f := newRfidFixture()

	first, err := f.svc.Add("CARD-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)

	second, err := f.svc.Add("CARD-2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, models.UnknownUserID, second.UserID)
}

func TestAdd_RejectsDuplicate(t *testing.T) {
	f := newRfidFixture()
	_, err := f.svc.Add("CARD-1", "user-1")
	require.NoError(t, err)

	_, err = f.svc.Add("CARD-1", "user-2")
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, f.svc.Count())
}

func TestAdd_RequiresID(t *testing.T) {
	f := newRfidFixture()
	_, err := f.svc.Add("", "user-1")
	assert.Error(t, err)
}

func TestDelete_UnknownTag(t *testing.T) {
	f := newRfidFixture()
	assert.ErrorIs(t, f.svc.Delete("nope"), ErrNotFound)
}

func TestDelete_StopsChargingTag(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "user-1")
	result := f.svc.Tap("CARD-1")
	require.True(t, result.Accepted)
	require.NotNil(t, f.sessions.Active())

	require.NoError(t, f.svc.Delete("CARD-1"))
	assert.Nil(t, f.sessions.Active())
	assert.Zero(t, f.svc.Count())
}

func TestDelete_KeepsNumbersOfSurvivors(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")
	f.svc.Add("CARD-2", "u")
	require.NoError(t, f.svc.Delete("CARD-1"))

	rec, ok := f.svc.Lookup("CARD-2")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Number)

	// New adds continue past the highest survivor.
	added, err := f.svc.Add("CARD-3", "u")
	require.NoError(t, err)
	assert.Equal(t, 3, added.Number)
}

func TestAddBatch_SkipsDuplicatesAndJunk(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "user-1")

	added := f.svc.AddBatch([]any{
		"CARD-1",
		"CARD-2",
		map[string]any{"id": "CARD-3", "userId": "user-3"},
		map[string]any{"name": "no id here"},
		42.0,
	})
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, f.svc.Count())
}

func TestSync_NormalizesHeterogeneousShapes(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("OLD-CARD", "user-0")

	count, err := f.svc.Sync([]any{
		"CARD-A",
		map[string]any{"rfidId": "CARD-B", "ownerUid": "user-b"},
		map[string]any{"uid": "CARD-C"},
		map[string]any{"broken": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list := f.svc.List()
	require.Len(t, list, 3)
	// Renumbered densely from 1 in input order.
	assert.Equal(t, models.RfidRecord{Number: 1, ID: "CARD-A", UserID: models.UnknownUserID}, list[0])
	assert.Equal(t, models.RfidRecord{Number: 2, ID: "CARD-B", UserID: "user-b"}, list[1])
	assert.Equal(t, models.RfidRecord{Number: 3, ID: "CARD-C", UserID: models.UnknownUserID}, list[2])

	_, ok := f.svc.Lookup("OLD-CARD")
	assert.False(t, ok)
}

func TestSync_StopsSessionOfRemovedTag(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")
	f.svc.Tap("CARD-1")
	require.NotNil(t, f.sessions.Active())

	_, err := f.svc.Sync([]any{"CARD-2"})
	require.NoError(t, err)
	assert.Nil(t, f.sessions.Active())
}

func TestSync_KeepsSessionOfSurvivingTag(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")
	f.svc.Tap("CARD-1")

	_, err := f.svc.Sync([]any{"CARD-1", "CARD-2"})
	require.NoError(t, err)
	require.NotNil(t, f.sessions.Active())
	assert.Equal(t, "CARD-1", f.sessions.CurrentTag())
}

func TestTap_UnknownTagRejected(t *testing.T) {
	f := newRfidFixture()

	result := f.svc.Tap("GHOST")
	assert.False(t, result.Accepted)
	assert.Equal(t, "RFID GHOST not found in authorized list", result.Message)
	assert.Nil(t, f.sessions.Active())
}

func TestTap_ToggleCycle(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")

	started := f.svc.Tap("CARD-1")
	require.True(t, started.Accepted)
	assert.True(t, started.Started)
	require.NotNil(t, started.Session)

	stopped := f.svc.Tap("CARD-1")
	require.True(t, stopped.Accepted)
	assert.False(t, stopped.Started)
	assert.Equal(t, models.SessionCompleted, stopped.Session.Status)
}

func TestTap_BusyWithOtherTag(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")
	f.svc.Add("CARD-2", "u")
	f.svc.Tap("CARD-1")

	result := f.svc.Tap("CARD-2")
	assert.False(t, result.Accepted)
	assert.Equal(t, "Cannot tap RFID CARD-2 - CARD-1 is currently charging", result.Message)
	assert.Equal(t, "CARD-1", f.sessions.CurrentTag())
}

func TestRestore_ReplacesRegistry(t *testing.T) {
	f := newRfidFixture()
	f.svc.Restore([]models.RfidRecord{{Number: 5, ID: "CARD-9", UserID: "u"}})

	rec, ok := f.svc.Lookup("CARD-9")
	require.True(t, ok)
	assert.Equal(t, 5, rec.Number)

	added, err := f.svc.Add("CARD-10", "u")
	require.NoError(t, err)
	assert.Equal(t, 6, added.Number)
}

func TestMutations_PersistRegistry(t *testing.T) {
	f := newRfidFixture()
	f.svc.Add("CARD-1", "u")

	var persisted []models.RfidRecord
	found, err := f.store.Load("rfids", &persisted)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, persisted, 1)
	assert.Equal(t, "CARD-1", persisted[0].ID)
}
