package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/structures"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ApiController is the HTTP mirror of the WebSocket protocol: the same
// registry and session operations, exposed for dashboards and test tooling.
type ApiController struct {
	conf     *structures.Config
	device   *models.DeviceStateStore
	sessions services.SessionServiceInterface
	rfids    services.RfidServiceInterface
	relay    *services.BroadcastRelay
	logger   providers.Logger
	cache    providers.CacheProviderInterface
}

func NewApiController(
	conf *structures.Config,
	device *models.DeviceStateStore,
	sessions services.SessionServiceInterface,
	rfids services.RfidServiceInterface,
	relay *services.BroadcastRelay,
	logger providers.Logger,
	cache providers.CacheProviderInterface,
) *ApiController {
	return &ApiController{
		conf:     conf,
		device:   device,
		sessions: sessions,
		rfids:    rfids,
		relay:    relay,
		logger:   logger,
		cache:    cache,
	}
}

func (ac *ApiController) writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) GetStatus(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "status", func() (any, error) {
		state := ac.device.Snapshot()
		return map[string]any{
			"deviceId":         ac.conf.Device.ID,
			"charging":         state.IsCharging,
			"status":           state.Status,
			"energyKWh":        state.LifetimeEnergyKWh,
			"currentRFID":      state.CurrentRfid,
			"connectedClients": state.ConnectedClients,
			"rfidCount":        ac.rfids.Count(),
			"activeSession":    ac.sessions.Active(),
			"totalSessions":    ac.sessions.Count(),
		}, nil
	})
}

func (ac *ApiController) GetRfids(w http.ResponseWriter, r *http.Request) {
	list := ac.rfids.List()
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rfids":   list,
		"count":   len(list),
	})
}

func (ac *ApiController) AddRfid(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
		ac.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "rfid id required"})
		return
	}

	if _, err := ac.rfids.Add(payload.ID, payload.UserID); err != nil {
		message := "failed to add RFID"
		if errors.Is(err, services.ErrDuplicateID) {
			message = "RFID already exists"
		}
		ac.writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": message})
		return
	}
	ac.relay.NudgeTelemetry()
	ac.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "RFID added successfully",
		"rfids":   ac.rfids.List(),
	})
}

func (ac *ApiController) SyncRfids(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		Rfids []any `json:"rfids"`
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		ac.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}
	// Accept both a wrapped {rfids:[...]} object and a bare array.
	if err := json.Unmarshal(body, &payload); err != nil || payload.Rfids == nil {
		var bare []any
		if err := json.Unmarshal(body, &bare); err != nil {
			ac.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "rfids array required"})
			return
		}
		payload.Rfids = bare
	}

	count, err := ac.rfids.Sync(payload.Rfids)
	if err != nil {
		ac.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
		return
	}
	ac.relay.NudgeTelemetry()
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "RFIDs synced",
		"rfids":   ac.rfids.List(),
		"count":   count,
	})
}

func (ac *ApiController) DeleteRfid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("rfidId")
	if err := ac.rfids.Delete(id); err != nil {
		ac.writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "RFID not found"})
		return
	}
	ac.relay.NudgeTelemetry()
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "RFID deleted successfully",
		"rfids":   ac.rfids.List(),
	})
}

// SimulateRfid mimics a physical tap on the reader.
func (ac *ApiController) SimulateRfid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("rfidId")
	result := ac.rfids.Tap(id)
	state := ac.device.Snapshot()

	ac.relay.Broadcast(map[string]any{
		"event":       "state_changed",
		"deviceId":    ac.conf.Device.ID,
		"isCharging":  state.IsCharging,
		"currentRFID": state.CurrentRfid,
		"energyKWh":   state.LifetimeEnergyKWh,
		"session":     result.Session,
		"timestamp":   time.Now().UnixMilli(),
	})
	ac.relay.NudgeTelemetry()

	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success":     result.Accepted,
		"message":     result.Message,
		"rfidId":      id,
		"charging":    state.IsCharging,
		"currentRFID": state.CurrentRfid,
		"session":     result.Session,
	})
}

func (ac *ApiController) GetSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"sessions":      ac.sessions.History(limit),
		"activeSession": ac.sessions.Active(),
		"totalSessions": ac.sessions.Count(),
	})
}

func (ac *ApiController) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	session := ac.sessions.Active()
	if session == nil {
		ac.writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "No active session"})
		return
	}
	ac.writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}

// GetUnsyncedSessions lists pending sessions without marking them synced;
// consumers acknowledge explicitly through AckSessions.
func (ac *ApiController) GetUnsyncedSessions(w http.ResponseWriter, r *http.Request) {
	var unsynced []*models.ChargingSession
	for _, s := range ac.sessions.History(0) {
		if s.Unsynced {
			unsynced = append(unsynced, s)
		}
	}
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": unsynced,
		"count":    len(unsynced),
	})
}

func (ac *ApiController) AckSessions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		SessionIDs []string `json:"sessionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SessionIDs == nil {
		ac.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "sessionIds array required"})
		return
	}
	updated := ac.sessions.AckSynced(payload.SessionIDs)
	ac.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Acknowledged %d sessions", updated),
	})
}

func (ac *ApiController) StartSession(w http.ResponseWriter, r *http.Request) {
	if ac.sessions.Active() != nil {
		ac.writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Device is already charging"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		UserID *string `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	session := ac.sessions.Start(payload.UserID, nil)
	ac.relay.NudgeTelemetry()
	ac.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "session": session})
}

func (ac *ApiController) StopSession(w http.ResponseWriter, r *http.Request) {
	session := ac.sessions.Stop("Stopped via HTTP")
	if session == nil {
		ac.writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Device is not charging"})
		return
	}
	ac.relay.NudgeTelemetry()
	ac.writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}
