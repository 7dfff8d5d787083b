package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/models"
	"chargersim/internal/structures"
	"chargersim/internal/testutil"
)

func telemetryConfig() *structures.Config {
	return &structures.Config{
		Device: structures.DeviceConfig{
			ID:     "wtl-test-device",
			Phases: 3,
			LimitA: 16,
		},
		Telemetry: structures.TelemetryConfig{
			Interval: time.Second,
			Debounce: 100 * time.Millisecond,
		},
	}
}

type telemetryFixture struct {
	device   *models.DeviceStateStore
	sessions SessionServiceInterface
	metrics  *testutil.MockMetrics
	svc      *TelemetryService
}

func newTelemetryFixture() *telemetryFixture {
	conf := telemetryConfig()
	device := models.NewDeviceStateStore()
	relay := NewBroadcastRelay()
	relay.Bind(&testutil.MockBroadcaster{})
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	sessions := NewSessionService(device, testutil.NewMockStore(), relay, logger, metrics)
	return &telemetryFixture{
		device:   device,
		sessions: sessions,
		metrics:  metrics,
		svc:      NewTelemetryService(conf, device, sessions, logger, metrics),
	}
}

func TestNewTelemetryService_SeedsSettingsFromConfig(t *testing.T) {
	conf := telemetryConfig()
	conf.Device.LimitA = 32
	device := models.NewDeviceStateStore()
	relay := NewBroadcastRelay()
	relay.Bind(&testutil.MockBroadcaster{})
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	sessions := NewSessionService(device, testutil.NewMockStore(), relay, logger, metrics)
	svc := NewTelemetryService(conf, device, sessions, logger, metrics)

	require.Equal(t, 32, device.Settings().LimitA)

	device.ClientConnected(1)
	sessions.Start(nil, nil)
	for i := 0; i < 20; i++ {
		env := svc.Generate()
		assert.GreaterOrEqual(t, env.Telemetry.CurrentA, 32*0.8)
		assert.LessOrEqual(t, env.Telemetry.CurrentA, 32*1.2)
	}
}

func TestNewTelemetryService_ZeroLimitKeepsDefault(t *testing.T) {
	conf := telemetryConfig()
	conf.Device.LimitA = 0
	device := models.NewDeviceStateStore()
	relay := NewBroadcastRelay()
	relay.Bind(&testutil.MockBroadcaster{})
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	sessions := NewSessionService(device, testutil.NewMockStore(), relay, logger, metrics)
	NewTelemetryService(conf, device, sessions, logger, metrics)

	assert.Equal(t, 16, device.Settings().LimitA)
}

func TestGenerate_IdleNoClients(t *testing.T) {
	f := newTelemetryFixture()

	env := f.svc.Generate()
	assert.Equal(t, "telemetry", env.Event)
	assert.Equal(t, "wtl-test-device", env.DeviceID)
	assert.Equal(t, models.StatusDisconnected, env.Telemetry.Status)
	assert.Zero(t, env.Telemetry.CurrentA)
	assert.Zero(t, env.Telemetry.PowerKW)
	assert.Equal(t, 3, env.Telemetry.Phases)
	assert.Nil(t, env.LastSession)
	assert.Equal(t, 1, f.metrics.TelemetryTicks)
}

func TestGenerate_ConnectedNotCharging(t *testing.T) {
	f := newTelemetryFixture()
	f.device.ClientConnected(1)

	env := f.svc.Generate()
	assert.Equal(t, models.StatusConnected, env.Telemetry.Status)
	assert.Zero(t, env.Telemetry.CurrentA)
	assert.GreaterOrEqual(t, env.Telemetry.VoltageV, 220)
	assert.LessOrEqual(t, env.Telemetry.VoltageV, 240)
}

func TestGenerate_ChargingValuesWithinBounds(t *testing.T) {
	f := newTelemetryFixture()
	f.device.ClientConnected(1)
	f.sessions.Start(nil, nil)

	for i := 0; i < 50; i++ {
		env := f.svc.Generate()
		require.Equal(t, models.StatusCharging, env.Telemetry.Status)
		// current swings between 80% and 120% of the 16A limit
		assert.GreaterOrEqual(t, env.Telemetry.CurrentA, 16*0.8)
		assert.LessOrEqual(t, env.Telemetry.CurrentA, 16*1.2)
		assert.Greater(t, env.Telemetry.PowerKW, 0.0)
	}
}

func TestGenerate_AccruesEnergyOnlyWhileCharging(t *testing.T) {
	f := newTelemetryFixture()
	f.device.ClientConnected(1)

	f.svc.Generate()
	assert.Zero(t, f.device.Snapshot().LifetimeEnergyKWh)

	f.sessions.Start(nil, nil)
	f.svc.Generate()
	state := f.device.Snapshot()
	assert.Greater(t, state.SessionEnergyKWh, 0.0)
	assert.InDelta(t, state.SessionEnergyKWh, state.LifetimeEnergyKWh, 1e-9)
}

func TestGenerate_LastSessionLiveEnergy(t *testing.T) {
	f := newTelemetryFixture()
	f.device.ClientConnected(1)
	session := f.sessions.Start(nil, nil)

	env := f.svc.Generate()
	require.NotNil(t, env.LastSession)
	assert.Equal(t, session.SessionID, env.LastSession.SessionID)
	assert.Equal(t, models.SessionStarted, env.LastSession.Status)
	assert.Equal(t, f.device.Snapshot().SessionEnergyKWh, env.LastSession.EnergyKWh)
}

func TestGenerate_LastSessionFallsBackToCompleted(t *testing.T) {
	f := newTelemetryFixture()
	f.device.ClientConnected(1)
	f.sessions.Start(nil, nil)
	f.device.ApplySample(models.StatusCharging, 230, 16, 11, 0.25)
	stopped := f.sessions.Stop("done")

	env := f.svc.Generate()
	require.NotNil(t, env.LastSession)
	assert.Equal(t, stopped.SessionID, env.LastSession.SessionID)
	assert.Equal(t, models.SessionCompleted, env.LastSession.Status)
	assert.InDelta(t, 0.25, env.LastSession.EnergyKWh, 1e-9)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 12.35, round(12.345678, 2))
	assert.Equal(t, 12.0, round(12.0, 2))
}
