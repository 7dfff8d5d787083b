package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"chargersim/internal/models"
	"chargersim/internal/services"
)

type HealthController struct {
	device    *models.DeviceStateStore
	sessions  services.SessionServiceInterface
	rfids     services.RfidServiceInterface
	startTime time.Time
}

type healthResponse struct {
	Status           string  `json:"status"`
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Charging         bool    `json:"charging"`
	ConnectedClients int     `json:"connected_clients"`
	Sessions         int     `json:"sessions"`
	Rfids            int     `json:"rfids"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(hc.startTime)
	state := hc.device.Snapshot()
	resp := healthResponse{
		Status:           "ok",
		Uptime:           formatDuration(uptime),
		UptimeSeconds:    uptime.Seconds(),
		Charging:         state.IsCharging,
		ConnectedClients: state.ConnectedClients,
		Sessions:         hc.sessions.Count(),
		Rfids:            hc.rfids.Count(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(device *models.DeviceStateStore, sessions services.SessionServiceInterface, rfids services.RfidServiceInterface) *HealthController {
	return &HealthController{
		device:    device,
		sessions:  sessions,
		rfids:     rfids,
		startTime: time.Now(),
	}
}
