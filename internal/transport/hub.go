package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/structures"
)

// MessageHandler processes one inbound frame and returns the direct reply, or
// nil when no reply should be sent.
type MessageHandler func(clientID string, data []byte) []byte

// Hub owns the WebSocket listener and the connected-client registry. It fans
// broadcasts out to every client and drives the telemetry clock: one ticker
// for the whole device, so energy accrues once per interval no matter how
// many clients watch.
type Hub struct {
	conf      *structures.Config
	device    *models.DeviceStateStore
	telemetry *services.TelemetryService
	rfids     services.RfidServiceInterface
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface

	mu      sync.RWMutex
	clients map[string]*client
	handler MessageHandler

	running  *atomic.Bool
	server   *http.Server
	upgrader websocket.Upgrader
	errC     chan error
	done     chan struct{}

	debounceMu sync.Mutex
	debounce   *time.Timer
}

func NewHub(
	conf *structures.Config,
	device *models.DeviceStateStore,
	telemetry *services.TelemetryService,
	rfids services.RfidServiceInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *Hub {
	return &Hub{
		conf:      conf,
		device:    device,
		telemetry: telemetry,
		rfids:     rfids,
		logger:    logger,
		metrics:   metrics,
		clients:   make(map[string]*client),
		running:   atomic.NewBool(false),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		errC: make(chan error, 1),
		done: make(chan struct{}),
	}
}

func (h *Hub) SetMessageHandler(fn MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = fn
}

func (h *Hub) messageHandler() MessageHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// Start brings up the listener and the telemetry clock. Listener failures
// after startup surface on Errors.
func (h *Hub) Start() error {
	if !h.running.CompareAndSwap(false, true) {
		return errors.New("hub already running")
	}

	path := h.conf.WebSocket.ListenPath
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, h.serveWs)

	addr := net.JoinHostPort(h.conf.WebSocket.Host, strconv.Itoa(h.conf.WebSocket.Port))
	h.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		h.running.Store(false)
		return fmt.Errorf("websocket listen on %s: %w", addr, err)
	}
	h.logger.Infof(providers.TypeWs, "WebSocket server listening on ws://%s%s", addr, path)

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case h.errC <- err:
			default:
			}
		}
	}()
	go h.telemetryLoop()
	return nil
}

// Stop shuts the listener down and disconnects every client.
func (h *Hub) Stop(ctx context.Context) error {
	if !h.running.CompareAndSwap(true, false) {
		return nil
	}
	close(h.done)

	h.debounceMu.Lock()
	if h.debounce != nil {
		h.debounce.Stop()
		h.debounce = nil
	}
	h.debounceMu.Unlock()

	h.mu.Lock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}

// Errors reports fatal transport errors after Start has returned.
func (h *Hub) Errors() <-chan error {
	return h.errC
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf(providers.TypeWs, "Upgrade failed for %s: %s", r.RemoteAddr, err)
		return
	}

	c := newClient(uuid.NewString(), conn, h)
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	count := h.device.ClientConnected(1)
	h.metrics.SetConnectedClients(count)
	h.logger.Infof(providers.TypeWs, "Client %s connected from %s (%d online)", c.id, r.RemoteAddr, count)

	go c.writePump()
	go c.readPump()

	if data, err := json.Marshal(h.helloEnvelope()); err == nil {
		c.enqueue(data)
	}
	// Let everyone observe the connection status change.
	h.NudgeTelemetry()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, known := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
	if !known {
		return
	}

	count := h.device.ClientConnected(-1)
	h.metrics.SetConnectedClients(count)
	h.logger.Infof(providers.TypeWs, "Client %s disconnected (%d online)", c.id, count)
	h.NudgeTelemetry()
}

// Broadcast sends v to every connected client. Undeliverable frames are
// dropped silently.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorf(providers.TypeWs, "Failed to encode broadcast: %s", err)
		return
	}
	h.WriteToAll(data)
}

func (h *Hub) WriteToAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(data)
	}
	if len(h.clients) > 0 {
		h.metrics.IncBroadcast()
	}
}

// NudgeTelemetry schedules a debounced off-cycle telemetry broadcast. Bursts
// of mutations within the window collapse into one sample, sent after the
// direct replies so the sender sees its response first.
func (h *Hub) NudgeTelemetry() {
	if !h.running.Load() {
		return
	}
	delay := h.conf.Telemetry.Debounce
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	h.debounceMu.Lock()
	defer h.debounceMu.Unlock()
	if h.debounce != nil {
		h.debounce.Stop()
	}
	h.debounce = time.AfterFunc(delay, func() {
		h.debounceMu.Lock()
		h.debounce = nil
		h.debounceMu.Unlock()
		h.broadcastTelemetry()
	})
}

func (h *Hub) telemetryLoop() {
	ticker := time.NewTicker(h.conf.Telemetry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcastTelemetry()
		}
	}
}

func (h *Hub) broadcastTelemetry() {
	env := h.telemetry.Generate()
	h.Broadcast(env)
}

func (h *Hub) helloEnvelope() *models.HelloEnvelope {
	state := h.device.Snapshot()
	settings := h.device.Settings()
	network := h.device.Network()

	ssid := network.SSID
	if network.Mode == "hotspot" {
		id := h.conf.Device.ID
		if len(id) > 6 {
			id = id[len(id)-6:]
		}
		ssid = "WiseCar-" + id
	}

	return &models.HelloEnvelope{
		Event:    "hello",
		DeviceID: h.conf.Device.ID,
		Info: models.DeviceInfo{
			Model:       h.conf.Device.Model,
			Serial:      h.conf.Device.Serial,
			FirmwareESP: h.conf.Device.FirmwareESP,
			FirmwareSTM: h.conf.Device.FirmwareSTM,
			Hardware:    h.conf.Device.Hardware,
		},
		Settings: models.HelloSettings{
			RfidSupported: settings.RfidSupported,
			AutoPlug:      settings.AutoPlug,
			FastCharging:  settings.FastCharging,
			Language:      settings.Language,
			LimitA:        settings.LimitA,
		},
		Warranty: models.Warranty{
			Start: h.conf.Device.WarrantyStart,
			End:   h.conf.Device.WarrantyEnd,
		},
		Rfids: h.rfids.List(),
		Network: models.HelloNetwork{
			Mode:      network.Mode,
			SSID:      ssid,
			Connected: true,
			Local:     network.Local,
		},
		Status: models.HelloStatus{
			Charging:   state.IsCharging,
			Connected:  state.ConnectedClients > 0,
			LastUpdate: time.Now().UTC(),
		},
	}
}
