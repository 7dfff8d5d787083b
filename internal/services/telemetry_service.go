package services

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/structures"
)

// TelemetryService produces the synthetic measurement stream. Each Generate
// call is one clock tick: it derives status from connectivity, randomizes the
// electrical values and accrues session energy, the only place energy grows.
// The delta is computed from wall-clock time since the previous tick, so an
// off-schedule regeneration (the debounced rebroadcast) never over-accrues.
type TelemetryService struct {
	conf     *structures.Config
	device   *models.DeviceStateStore
	sessions SessionServiceInterface
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface

	mu      sync.Mutex
	lastGen time.Time
}

func NewTelemetryService(conf *structures.Config, device *models.DeviceStateStore, sessions SessionServiceInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *TelemetryService {
	device.SetPhases(conf.Device.Phases)
	if conf.Device.LimitA > 0 {
		device.UpdateSettings(func(s *models.DeviceSettings) {
			s.LimitA = conf.Device.LimitA
		})
	}
	return &TelemetryService{
		conf:     conf,
		device:   device,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
	}
}

// Generate advances the device state by one tick and returns the telemetry
// envelope to push.
func (t *TelemetryService) Generate() *models.TelemetryEnvelope {
	now := time.Now()
	t.mu.Lock()
	elapsed := t.conf.Telemetry.Interval
	if !t.lastGen.IsZero() {
		elapsed = now.Sub(t.lastGen)
	}
	t.lastGen = now
	t.mu.Unlock()

	prev := t.device.Snapshot()
	settings := t.device.Settings()

	status := models.StatusDisconnected
	if prev.ConnectedClients > 0 {
		if prev.IsCharging {
			status = models.StatusCharging
		} else {
			status = models.StatusConnected
		}
	}

	voltage := 220 + rand.IntN(21)
	var current, power, delta float64
	if prev.IsCharging {
		current = round(float64(settings.LimitA)*(0.8+rand.Float64()*0.4), 2)
		power = round(float64(voltage)*current*float64(prev.Phases)/1000, 2)
		delta = power * elapsed.Seconds() / 3600
	}

	state := t.device.ApplySample(status, voltage, current, power, delta)
	t.metrics.IncTelemetryTick()

	env := &models.TelemetryEnvelope{
		Event:    "telemetry",
		DeviceID: t.conf.Device.ID,
		Telemetry: models.TelemetrySample{
			Status:       state.Status,
			VoltageV:     state.VoltageV,
			CurrentA:     state.CurrentA,
			PowerKW:      state.PowerKW,
			Phases:       state.Phases,
			TemperatureC: state.TemperatureC,
			UpdatedAt:    time.Now().UTC(),
		},
		LastSession: t.lastSessionView(state),
	}

	if state.IsCharging {
		t.logger.Debugf(providers.TypeTelemetry, "charging: %.2fA x %dV = %.2fkW, session %.3f kWh",
			state.CurrentA, state.VoltageV, state.PowerKW, state.SessionEnergyKWh)
	}
	return env
}

// lastSessionView embeds the active session with its live accumulated energy,
// falling back to the most recently completed one.
func (t *TelemetryService) lastSessionView(state models.DeviceState) *models.SessionView {
	session := t.sessions.Active()
	energy := state.SessionEnergyKWh
	if session == nil {
		history := t.sessions.History(1)
		if len(history) == 0 {
			return nil
		}
		session = history[0]
		energy = session.EnergyKWh
	}
	return &models.SessionView{
		SessionID: session.SessionID,
		Status:    session.Status,
		UserID:    session.UserID,
		StartAt:   session.StartAt,
		EndAt:     session.EndAt,
		EnergyKWh: energy,
		RfidID:    session.RfidID,
	}
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
