package protocol

import (
	"time"

	json "github.com/goccy/go-json"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/structures"
)

const (
	dialectLegacy = "legacy"
	dialectV21    = "v21"

	outcomeAccepted  = "accepted"
	outcomeRejected  = "rejected"
	outcomeMalformed = "malformed"
)

const deviceKey = "device"

// Dispatcher interprets one inbound frame at a time. It is stateless per
// message: the dialect is detected from the envelope shape, the handler runs
// against current device/session/registry state and the direct reply is
// returned to the transport. Broadcasts go through the relay.
type Dispatcher struct {
	conf      *structures.Config
	device    *models.DeviceStateStore
	sessions  services.SessionServiceInterface
	rfids     services.RfidServiceInterface
	relay     *services.BroadcastRelay
	store     services.Persister
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	startedAt time.Time
}

func NewDispatcher(
	conf *structures.Config,
	device *models.DeviceStateStore,
	sessions services.SessionServiceInterface,
	rfids services.RfidServiceInterface,
	relay *services.BroadcastRelay,
	store services.Persister,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *Dispatcher {
	return &Dispatcher{
		conf:      conf,
		device:    device,
		sessions:  sessions,
		rfids:     rfids,
		relay:     relay,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		startedAt: time.Now(),
	}
}

// Handle processes one inbound message and returns the reply frame to send to
// the sender. The connection is never closed on a bad message.
func (d *Dispatcher) Handle(clientID string, data []byte) []byte {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		d.logger.Warnf(providers.TypeWs, "Client %s sent malformed message: %s", clientID, err)
		d.metrics.IncCommand(dialectLegacy, "parse", outcomeMalformed)
		return d.encode(map[string]any{"ack": false, "msg": "Invalid command format"})
	}
	var reply any
	switch {
	case env.Type != "":
		reply = d.handleV21(clientID, &env)
	case env.Config != "":
		reply = d.handleLegacyConfig(&env)
	case env.Action != "":
		reply = d.handleLegacyAction(clientID, &env)
	case env.Command != "":
		reply = d.handleLegacySystem(&env)
	default:
		d.metrics.IncCommand(dialectLegacy, "unknown", outcomeRejected)
		reply = map[string]any{"ack": false, "msg": "Unknown command"}
	}
	if reply == nil {
		return nil
	}
	return d.encode(reply)
}

func (d *Dispatcher) encode(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		d.logger.Errorf(providers.TypeWs, "Failed to encode reply: %s", err)
		return []byte(`{"ack":false,"msg":"error"}`)
	}
	return out
}

func (d *Dispatcher) record(dialect, command string, accepted bool) {
	outcome := outcomeAccepted
	if !accepted {
		outcome = outcomeRejected
	}
	d.metrics.IncCommand(dialect, command, outcome)
}

// nudge schedules the debounced telemetry rebroadcast that follows every
// state-mutating command, so all clients observe the change without racing
// the direct reply.
func (d *Dispatcher) nudge() {
	d.relay.NudgeTelemetry()
}

// persistDevice flushes the settings/counter blob after a config mutation.
// Failure is a warning; the in-memory state stays authoritative.
func (d *Dispatcher) persistDevice() {
	snap := d.device.SnapshotForPersist(d.sessions.Counter())
	if err := d.store.Save(deviceKey, snap); err != nil {
		d.logger.Warnf(providers.TypeApp, "Failed to persist device settings: %s", err)
	}
}

func (d *Dispatcher) persistNetwork() {
	if err := d.store.Save("network", d.device.Network()); err != nil {
		d.logger.Warnf(providers.TypeApp, "Failed to persist network config: %s", err)
	}
}

func (d *Dispatcher) uptimeSeconds() int64 {
	return int64(time.Since(d.startedAt).Seconds())
}
