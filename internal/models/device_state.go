package models

import (
	"sync"
	"time"
)

type DeviceStatus string

const (
	StatusDisconnected DeviceStatus = "disconnected"
	StatusConnected    DeviceStatus = "connected"
	StatusCharging     DeviceStatus = "charging"
)

// DeviceState is a snapshot of the charger's telemetry record.
type DeviceState struct {
	Status            DeviceStatus `json:"status"`
	VoltageV          int          `json:"voltageV"`
	CurrentA          float64      `json:"currentA"`
	PowerKW           float64      `json:"powerKW"`
	Phases            int          `json:"phases"`
	TemperatureC      float64      `json:"temperatureC"`
	IsCharging        bool         `json:"isCharging"`
	CurrentRfid       string       `json:"currentRfid,omitempty"`
	SessionEnergyKWh  float64      `json:"sessionEnergyKWh"`
	LifetimeEnergyKWh float64      `json:"lifetimeEnergyKWh"`
	ConnectedClients  int          `json:"connectedClients"`
}

// DeviceSettings are the mutable capability toggles exposed to config
// commands. Seeded from the static device config at startup, persisted in the
// device snapshot blob.
type DeviceSettings struct {
	RfidSupported    bool        `json:"rfidSupported"`
	AutoPlug         bool        `json:"autoPlug"`
	FastCharging     bool        `json:"fastCharging"`
	Language         string      `json:"language"`
	LimitA           int         `json:"limitA"`
	LimitTimeHours   int         `json:"limitTimeHours"`
	LimitTimeMinutes int         `json:"limitTimeMinutes"`
	DeviceTime       *DeviceTime `json:"deviceTime,omitempty"`
}

type DeviceTime struct {
	Year   int       `json:"year"`
	Month  int       `json:"month"`
	Day    int       `json:"day"`
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
	Second int       `json:"second"`
	SetAt  time.Time `json:"setAt"`
}

type NetworkConfig struct {
	Mode     string `json:"mode"`
	SSID     string `json:"ssid,omitempty"`
	Password string `json:"password,omitempty"`
	Local    bool   `json:"local"`
}

// DeviceSnapshot is the persisted device blob: the session counter, lifetime
// energy and settings survive process restarts through it.
type DeviceSnapshot struct {
	SessionCounter    uint64         `json:"sessionCounter"`
	LifetimeEnergyKWh float64        `json:"lifetimeEnergyKWh"`
	Settings          DeviceSettings `json:"settings"`
}

// DeviceStateStore is the single mutable device record. All domain goroutines
// (dispatcher, telemetry tickers, hub bookkeeping) go through it; direct field
// access outside this type is not allowed.
type DeviceStateStore struct {
	mu       sync.RWMutex
	state    DeviceState
	settings DeviceSettings
	network  NetworkConfig
}

func NewDeviceStateStore() *DeviceStateStore {
	return &DeviceStateStore{
		state: DeviceState{
			Status:       StatusDisconnected,
			VoltageV:     230,
			Phases:       1,
			TemperatureC: 38,
		},
		settings: DeviceSettings{
			RfidSupported: true,
			AutoPlug:      true,
			FastCharging:  true,
			Language:      "en",
			LimitA:        16,
		},
		network: NetworkConfig{Mode: "hotspot"},
	}
}

func (d *DeviceStateStore) Snapshot() DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *DeviceStateStore) Settings() DeviceSettings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// UpdateSettings applies fn to the settings record under the store lock.
func (d *DeviceStateStore) UpdateSettings(fn func(*DeviceSettings)) DeviceSettings {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.settings)
	return d.settings
}

func (d *DeviceStateStore) Network() NetworkConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.network
}

func (d *DeviceStateStore) SetNetwork(n NetworkConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.network = n
}

func (d *DeviceStateStore) SetPhases(phases int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if phases > 0 {
		d.state.Phases = phases
	}
}

// ClientConnected adjusts the connected-client count by delta and returns the
// new count.
func (d *DeviceStateStore) ClientConnected(delta int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.ConnectedClients += delta
	if d.state.ConnectedClients < 0 {
		d.state.ConnectedClients = 0
	}
	return d.state.ConnectedClients
}

// BeginSession flips the store into charging state for the given tag (empty
// for manual starts) and resets the per-session energy counter. Called only
// by the session manager.
func (d *DeviceStateStore) BeginSession(rfidID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.IsCharging = true
	d.state.CurrentRfid = rfidID
	d.state.SessionEnergyKWh = 0
}

// EndSession clears the charging state and returns the frozen session energy.
func (d *DeviceStateStore) EndSession() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	energy := d.state.SessionEnergyKWh
	d.state.IsCharging = false
	d.state.CurrentRfid = ""
	return energy
}

// ApplySample writes one synthetic measurement. energyDelta accrues into the
// session and lifetime counters; this is the only energy accrual path.
func (d *DeviceStateStore) ApplySample(status DeviceStatus, voltageV int, currentA, powerKW, energyDelta float64) DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = status
	d.state.VoltageV = voltageV
	d.state.CurrentA = currentA
	d.state.PowerKW = powerKW
	if energyDelta > 0 {
		d.state.SessionEnergyKWh += energyDelta
		d.state.LifetimeEnergyKWh += energyDelta
	}
	return d.state
}

// ResetEnergy zeroes the lifetime counter (legacy reset_energy command).
func (d *DeviceStateStore) ResetEnergy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.LifetimeEnergyKWh = 0
	d.state.SessionEnergyKWh = 0
}

// RestoreSnapshot reapplies persisted lifetime energy and settings at startup.
func (d *DeviceStateStore) RestoreSnapshot(snap DeviceSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.LifetimeEnergyKWh = snap.LifetimeEnergyKWh
	if snap.Settings.LimitA > 0 {
		d.settings = snap.Settings
	}
}

func (d *DeviceStateStore) SnapshotForPersist(sessionCounter uint64) DeviceSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DeviceSnapshot{
		SessionCounter:    sessionCounter,
		LifetimeEnergyKWh: d.state.LifetimeEnergyKWh,
		Settings:          d.settings,
	}
}
