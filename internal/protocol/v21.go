package protocol

import (
	"errors"
	"fmt"
	"time"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
)

func (d *Dispatcher) handleV21(clientID string, env *Envelope) any {
	switch env.Type {
	case "config":
		return d.v21Config(env)
	case "action":
		return d.v21Action(env)
	case "event":
		return d.v21Event(clientID, env)
	default:
		command := env.Command
		if command == "" {
			command = "unknown"
		}
		d.record(dialectV21, command, false)
		return v21Fail(command, "Unknown command type")
	}
}

func (d *Dispatcher) v21Config(env *Envelope) any {
	switch env.Command {
	case "network":
		var data struct {
			SSID     string `json:"ssid"`
			Password string `json:"password"`
			Local    bool   `json:"local"`
		}
		if !decodeData(env.Data, &data) || data.SSID == "" || data.Password == "" {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid network parameters")
		}
		d.device.SetNetwork(models.NetworkConfig{
			Mode:     "wifi",
			SSID:     data.SSID,
			Password: data.Password,
			Local:    data.Local,
		})
		d.persistNetwork()
		d.record(dialectV21, env.Command, true)
		d.logger.Infof(providers.TypeWs, "Network configured: SSID=%s", data.SSID)
		return v21OK(env.Command, map[string]any{
			"ssid":    data.SSID,
			"status":  "configured",
			"message": "Network configuration saved",
		})

	case "add_rfid":
		var data struct {
			ID     string `json:"id"`
			UserID string `json:"userId"`
		}
		if !decodeData(env.Data, &data) || data.ID == "" {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid RFID data - id required")
		}
		if _, err := d.rfids.Add(data.ID, data.UserID); err != nil {
			d.record(dialectV21, env.Command, false)
			if errors.Is(err, services.ErrDuplicateID) {
				return v21Fail(env.Command, fmt.Sprintf("RFID %s already exists", data.ID))
			}
			return v21Fail(env.Command, err.Error())
		}
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"id":      data.ID,
			"message": "RFID added successfully",
		})

	case "delete_rfid":
		var data struct {
			ID string `json:"id"`
		}
		if !decodeData(env.Data, &data) || data.ID == "" {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "RFID ID required")
		}
		if err := d.rfids.Delete(data.ID); err != nil {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, fmt.Sprintf("RFID %s not found", data.ID))
		}
		d.nudge()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"id":      data.ID,
			"message": "RFID deleted successfully",
		})

	case "fastCharging", "autoPlug", "rfidSupported":
		var data struct {
			Value *bool `json:"value"`
		}
		if !decodeData(env.Data, &data) || data.Value == nil {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, fmt.Sprintf("Invalid %s value - boolean required", env.Command))
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) {
			switch env.Command {
			case "fastCharging":
				s.FastCharging = *data.Value
			case "autoPlug":
				s.AutoPlug = *data.Value
			case "rfidSupported":
				s.RfidSupported = *data.Value
			}
		})
		d.persistDevice()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"value":   *data.Value,
			"message": fmt.Sprintf("%s setting updated", env.Command),
		})

	case "language":
		var data struct {
			Value string `json:"value"`
		}
		if !decodeData(env.Data, &data) || data.Value == "" {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid language value - string required")
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) { s.Language = data.Value })
		d.persistDevice()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"value":   data.Value,
			"message": "Language setting updated",
		})

	case "set_limitA":
		var data struct {
			Value *int `json:"value"`
		}
		if !decodeData(env.Data, &data) || data.Value == nil || *data.Value < 1 {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid current limit (must be a positive integer)")
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) { s.LimitA = *data.Value })
		d.persistDevice()
		d.record(dialectV21, env.Command, true)
		d.logger.Infof(providers.TypeWs, "Current limit updated to: %dA", *data.Value)
		return v21OK(env.Command, map[string]any{"value": *data.Value})

	case "set_limitTime":
		var data struct {
			Hour   *int `json:"hour"`
			Minute *int `json:"minute"`
		}
		if !decodeData(env.Data, &data) || data.Hour == nil || data.Minute == nil ||
			*data.Hour < 0 || *data.Hour > 23 || *data.Minute < 0 || *data.Minute > 59 {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid time limit (hour: 0-23, minute: 0-59)")
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) {
			s.LimitTimeHours = *data.Hour
			s.LimitTimeMinutes = *data.Minute
		})
		d.persistDevice()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"hour":    *data.Hour,
			"minute":  *data.Minute,
			"message": "Set limit time setting updated",
		})

	case "setTime":
		var data struct {
			Year   int  `json:"year"`
			Month  int  `json:"month"`
			Day    int  `json:"day"`
			Hour   *int `json:"hour"`
			Minute *int `json:"minute"`
			Second *int `json:"second"`
		}
		if !decodeData(env.Data, &data) || data.Year == 0 || data.Month == 0 || data.Day == 0 ||
			data.Hour == nil || data.Minute == nil || data.Second == nil {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Invalid time data - year, month, day, hour, minute, second required")
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) {
			s.DeviceTime = &models.DeviceTime{
				Year:   data.Year,
				Month:  data.Month,
				Day:    data.Day,
				Hour:   *data.Hour,
				Minute: *data.Minute,
				Second: *data.Second,
				SetAt:  time.Now().UTC(),
			}
		})
		d.persistDevice()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"message": "Device time set successfully",
			"setTime": fmt.Sprintf("%d-%02d-%02d %02d:%02d:%02d",
				data.Year, data.Month, data.Day, *data.Hour, *data.Minute, *data.Second),
		})

	default:
		d.record(dialectV21, env.Command, false)
		return v21Fail(env.Command, "Unknown config command")
	}
}

func (d *Dispatcher) v21Action(env *Envelope) any {
	switch env.Command {
	case "start_charging":
		if d.sessions.Active() != nil {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Device is already charging")
		}
		var data struct {
			UserID *string `json:"userId"`
		}
		decodeData(env.Data, &data)
		session := d.sessions.Start(data.UserID, nil)
		d.nudge()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"sessionId": session.SessionID,
			"startTime": session.StartAt,
			"message":   "Charging started successfully",
		})

	case "stop_charging":
		session := d.sessions.Stop("Manual stop via WebSocket")
		if session == nil {
			d.record(dialectV21, env.Command, false)
			return v21Fail(env.Command, "Device is not charging")
		}
		d.nudge()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"sessionId":      session.SessionID,
			"endTime":        session.EndAt,
			"energyConsumed": session.EnergyKWh,
			"message":        "Charging stopped successfully",
		})

	case "get_status":
		state := d.device.Snapshot()
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"status":           state.Status,
			"isCharging":       state.IsCharging,
			"connectedClients": state.ConnectedClients,
			"currentSession":   d.sessions.Active(),
			"totalEnergy":      state.LifetimeEnergyKWh,
			"uptime":           d.uptimeSeconds(),
			"deviceId":         d.conf.Device.ID,
		})

	case "get_unsynced_sessions":
		batch := d.sessions.Unsynced(0)
		views := make([]map[string]any, 0, len(batch))
		for _, s := range batch {
			views = append(views, map[string]any{
				"sessionId": s.SessionID,
				"startAt":   s.StartAt,
				"endAt":     s.EndAt,
				"energykWh": s.EnergyKWh,
				"rfidId":    s.RfidID,
			})
		}
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"sessions": views,
			"count":    len(views),
		})

	case "ping":
		d.record(dialectV21, env.Command, true)
		return v21OK(env.Command, map[string]any{
			"message":      "pong",
			"deviceStatus": "connected",
		})

	default:
		d.record(dialectV21, env.Command, false)
		return v21Fail(env.Command, "Unknown action command")
	}
}

func (d *Dispatcher) v21Event(clientID string, env *Envelope) any {
	switch env.Event {
	case "rfid_tap":
		var data struct {
			ID string `json:"id"`
		}
		if !decodeData(env.Data, &data) || data.ID == "" {
			d.record(dialectV21, "rfid_tap", false)
			return v21Fail("rfid_tap", "RFID ID required")
		}
		result := d.rfids.Tap(data.ID)
		d.broadcastTap(data.ID, result)
		d.nudge()
		d.record(dialectV21, "rfid_tap", result.Accepted)

		var sessionID *string
		if result.Session != nil {
			sessionID = &result.Session.SessionID
		}
		resp := v21OK("rfid_tap", map[string]any{
			"id":        data.ID,
			"message":   result.Message,
			"sessionId": sessionID,
		})
		resp.Success = result.Accepted
		return resp

	default:
		d.record(dialectV21, env.Event, false)
		return v21Fail(env.Event, "Unknown event type")
	}
}

// broadcastTap tells every client about a tap attempt, accepted or not.
func (d *Dispatcher) broadcastTap(id string, result services.TapResult) {
	var sessionID *string
	if result.Session != nil {
		sessionID = &result.Session.SessionID
	}
	d.relay.Broadcast(&models.TapEvent{
		Type:  "event",
		Event: "rfid_tap",
		Data: models.TapEventData{
			ID:        id,
			Success:   result.Accepted,
			Message:   result.Message,
			SessionID: sessionID,
			Charging:  d.device.Snapshot().IsCharging,
		},
		Timestamp: time.Now().UTC(),
	})
}
