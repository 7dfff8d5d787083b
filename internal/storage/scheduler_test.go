package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/models"
	"chargersim/internal/services"
	"chargersim/internal/structures"
	"chargersim/internal/testutil"
)

type schedulerFixture struct {
	store    *testutil.MockStore
	device   *models.DeviceStateStore
	sessions services.SessionServiceInterface
	rfids    services.RfidServiceInterface
	sched    SchedulerInterface
}

func newSchedulerFixture() *schedulerFixture {
	conf := &structures.Config{
		Persistence: structures.Persistence{SaveInterval: time.Minute},
	}
	store := testutil.NewMockStore()
	device := models.NewDeviceStateStore()
	relay := services.NewBroadcastRelay()
	relay.Bind(&testutil.MockBroadcaster{})
	logger := &testutil.MockLogger{}
	sessions := services.NewSessionService(device, store, relay, logger, testutil.NewMockMetrics())
	rfids := services.NewRfidService(sessions, store, logger)
	return &schedulerFixture{
		store:    store,
		device:   device,
		sessions: sessions,
		rfids:    rfids,
		sched:    NewScheduler(conf, logger, store, device, sessions, rfids),
	}
}

func TestRestore_EmptyStoreKeepsDefaults(t *testing.T) {
	f := newSchedulerFixture()

	require.NoError(t, f.sched.Restore())
	assert.Zero(t, f.sessions.Count())
	assert.Zero(t, f.rfids.Count())
	assert.Equal(t, "hotspot", f.device.Network().Mode)
}

func TestPersistRestore_RoundTrip(t *testing.T) {
	f := newSchedulerFixture()
	f.rfids.Add("CARD-1", "u1")
	f.sessions.Start(nil, nil)
	f.device.ApplySample(models.StatusCharging, 230, 16, 11, 0.75)
	f.sessions.Stop("done")
	f.device.SetNetwork(models.NetworkConfig{Mode: "wifi", SSID: "HomeNet"})

	require.NoError(t, f.sched.Persist())

	// Boot a second instance from the same store.
	g := newSchedulerFixture()
	g.store.Data = f.store.Data
	require.NoError(t, g.sched.Restore())

	assert.Equal(t, 1, g.sessions.Count())
	assert.Equal(t, uint64(1), g.sessions.Counter())
	assert.Equal(t, 1, g.rfids.Count())
	assert.Equal(t, "wifi", g.device.Network().Mode)
	assert.InDelta(t, 0.75, g.device.Snapshot().LifetimeEnergyKWh, 1e-9)

	next := g.sessions.Start(nil, nil)
	assert.Equal(t, "session_000000002", next.SessionID)
}

func TestRestore_ClosesSessionLeftOpenByCrash(t *testing.T) {
	f := newSchedulerFixture()
	f.sessions.Start(nil, nil)
	require.NoError(t, f.sched.Persist())

	g := newSchedulerFixture()
	g.store.Data = f.store.Data
	require.NoError(t, g.sched.Restore())

	restored := g.sessions.Find("session_000000001")
	require.NotNil(t, restored)
	assert.Equal(t, models.SessionCompleted, restored.Status)
	assert.Nil(t, g.sessions.Active())
}

func TestPersist_PreservesSessionOrder(t *testing.T) {
	f := newSchedulerFixture()
	for i := 0; i < 3; i++ {
		f.sessions.Start(nil, nil)
		f.sessions.Stop("cycle")
	}
	require.NoError(t, f.sched.Persist())

	var persisted []*models.ChargingSession
	found, err := f.store.Load(KeySessions, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, persisted, 3)
	assert.Equal(t, "session_000000001", persisted[0].SessionID)
	assert.Equal(t, "session_000000003", persisted[2].SessionID)
}

func TestRestore_SurfacesCorruptBlob(t *testing.T) {
	f := newSchedulerFixture()
	f.store.LoadErr = errors.New("disk gone")
	assert.Error(t, f.sched.Restore())
}
