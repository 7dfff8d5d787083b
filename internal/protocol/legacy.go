package protocol

import (
	"errors"
	"fmt"
	"time"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
)

// handleLegacyConfig mutates one device setting named by the flat config key.
// Arguments arrive flat on the envelope, not in a data object.
func (d *Dispatcher) handleLegacyConfig(env *Envelope) any {
	switch env.Config {
	case "network":
		if env.SSID == "" || env.Password == "" {
			d.record(dialectLegacy, "config:network", false)
			return legacyErr("Invalid network parameters")
		}
		d.device.SetNetwork(models.NetworkConfig{
			Mode:     "wifi",
			SSID:     env.SSID,
			Password: env.Password,
			Local:    env.Local,
		})
		d.persistNetwork()
		d.record(dialectLegacy, "config:network", true)
		d.logger.Infof(providers.TypeWs, "Network configured: SSID=%s, mode=wifi", env.SSID)
		return legacyMsg(true, "ok", map[string]any{"ssid": env.SSID})

	case "fastCharging", "autoPlug", "rfid":
		value, ok := env.Value.(bool)
		if !ok {
			d.record(dialectLegacy, "config:"+env.Config, false)
			return legacyErr(fmt.Sprintf("Invalid %s value - boolean required", env.Config))
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) {
			switch env.Config {
			case "fastCharging":
				s.FastCharging = value
			case "autoPlug":
				s.AutoPlug = value
			case "rfid":
				s.RfidSupported = value
			}
		})
		d.persistDevice()
		d.record(dialectLegacy, "config:"+env.Config, true)
		return legacyOK()

	case "language":
		value, ok := env.Value.(string)
		if !ok || value == "" {
			d.record(dialectLegacy, "config:language", false)
			return legacyErr("Invalid language value - string required")
		}
		d.device.UpdateSettings(func(s *models.DeviceSettings) { s.Language = value })
		d.persistDevice()
		d.record(dialectLegacy, "config:language", true)
		return legacyOK()

	// These legacy config commands reply in the structured shape; some app
	// versions send them flat but expect the v2.1 response.
	case "set_limitA", "set_limitTime", "setTime":
		sub := &Envelope{Command: env.Config, Data: env.Data}
		return d.v21Config(sub)

	default:
		d.record(dialectLegacy, "config:"+env.Config, false)
		return legacyErr("Unknown config command")
	}
}

func (d *Dispatcher) handleLegacyAction(clientID string, env *Envelope) any {
	switch env.Action {
	case "start":
		if d.sessions.Active() != nil {
			d.record(dialectLegacy, env.Action, false)
			return legacyMsg(false, "already charging", nil)
		}
		var userID *string
		if env.UserID != "" {
			userID = &env.UserID
		}
		d.sessions.Start(userID, nil)
		d.applyStartLimits(env)
		d.nudge()
		d.record(dialectLegacy, env.Action, true)
		return legacyOK()

	case "stop":
		if d.sessions.Stop("User requested stop") == nil {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("Not charging")
		}
		d.nudge()
		d.record(dialectLegacy, env.Action, true)
		return legacyOK()

	case "get_status":
		state := d.device.Snapshot()
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, "ok", map[string]any{
			"status":           state.Status,
			"isCharging":       state.IsCharging,
			"connectedClients": state.ConnectedClients,
			"energyKWh":        state.LifetimeEnergyKWh,
			"activeSession":    d.sessions.Active(),
		})

	case "network":
		sub := &Envelope{Config: "network", SSID: env.SSID, Password: env.Password, Local: env.Local}
		return d.handleLegacyConfig(sub)

	case "set_limitA":
		sub := &Envelope{Command: "set_limitA", Data: env.Data}
		return d.v21Config(sub)

	case "reset_energy":
		d.device.ResetEnergy()
		d.nudge()
		d.record(dialectLegacy, env.Action, true)
		return legacyOK()

	case "rfid_numbers":
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "rfid_numbers", "numbers": d.rfids.Count()}

	case "rfid_list", "list_rfids", "get_rfids":
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "rfid_list", "rfids": d.rfids.List()}

	case "rfid_add", "add_rfid":
		if len(env.Rfids) == 0 {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("Invalid RFID data")
		}
		d.rfids.AddBatch(env.Rfids)
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "rfid_add", "ok": true}

	case "rfid_delete", "delete_rfid":
		if len(env.Rfids) == 0 {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("Invalid RFID data")
		}
		for _, entry := range env.Rfids {
			rec, ok := models.NormalizeRfidEntry(entry)
			if !ok {
				continue
			}
			if err := d.rfids.Delete(rec.ID); err != nil && !errors.Is(err, services.ErrNotFound) {
				d.logger.Warnf(providers.TypeApp, "Failed to delete RFID %s: %s", rec.ID, err)
			}
		}
		d.nudge()
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "rfid_delete", "ok": true}

	case "sync_rfids", "set_rfids":
		count, err := d.rfids.Sync(env.Rfids)
		if err != nil {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr(err.Error())
		}
		d.nudge()
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, "ok", map[string]any{"count": count})

	case "tap_rfid":
		if env.ID == "" {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("RFID ID required")
		}
		result := d.rfids.Tap(env.ID)
		d.broadcastTap(env.ID, result)
		d.nudge()
		d.record(dialectLegacy, env.Action, result.Accepted)
		extra := map[string]any{"charging": d.device.Snapshot().IsCharging}
		if result.Session != nil {
			extra["sessionId"] = result.Session.SessionID
		}
		return legacyMsg(result.Accepted, result.Message, extra)

	case "rfid_detection":
		// The hardware reports a detected tag a moment after the scan request.
		d.record(dialectLegacy, env.Action, true)
		time.AfterFunc(2*time.Second, func() {
			d.relay.Broadcast(map[string]any{"event": "rfid_detection", "rfid": "123456789"})
		})
		return nil

	case "last_session":
		history := d.sessions.History(1)
		if len(history) == 0 {
			d.record(dialectLegacy, env.Action, false)
			return legacyMsg(false, "no session", nil)
		}
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "last_session", "session": history[0]}

	case "get_session":
		if env.SessionID == "" {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("Session ID required")
		}
		session := d.sessions.Find(env.SessionID)
		if session == nil {
			d.record(dialectLegacy, env.Action, false)
			return legacyMsg(false, "no session", nil)
		}
		d.record(dialectLegacy, env.Action, true)
		return map[string]any{"event": "get_session", "session": session}

	case "get_sessions":
		limit := env.Limit
		if limit <= 0 {
			limit = 50
		}
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, "ok", map[string]any{
			"sessions":      d.sessions.History(limit),
			"activeSession": d.sessions.Active(),
			"totalSessions": d.sessions.Count(),
		})

	case "get_active_session":
		session := d.sessions.Active()
		if session == nil {
			d.record(dialectLegacy, env.Action, false)
			return legacyMsg(false, "no session", nil)
		}
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, "ok", map[string]any{"session": session})

	case "get_unsynced_sessions":
		batch := d.sessions.Unsynced(0)
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, "ok", map[string]any{
			"sessions": batch,
			"count":    len(batch),
		})

	case "ack_sessions_synced":
		if len(env.SessionIDs) == 0 {
			d.record(dialectLegacy, env.Action, false)
			return legacyErr("sessionIds array required")
		}
		updated := d.sessions.AckSynced(env.SessionIDs)
		d.record(dialectLegacy, env.Action, true)
		return legacyMsg(true, fmt.Sprintf("Acknowledged %d sessions", updated), map[string]any{"updated": updated})

	default:
		d.record(dialectLegacy, env.Action, false)
		return legacyErr(fmt.Sprintf("Unknown action: %s", env.Action))
	}
}

// handleLegacySystem covers flat messages selected by a bare command key.
func (d *Dispatcher) handleLegacySystem(env *Envelope) any {
	switch env.Command {
	case "ping":
		d.record(dialectLegacy, env.Command, true)
		return map[string]any{"command": "pong"}
	default:
		// Some app versions put the action under command.
		sub := *env
		sub.Action = env.Command
		sub.Command = ""
		return d.handleLegacyAction("", &sub)
	}
}

// applyStartLimits applies the optional current-limit arguments the legacy
// start command carries.
func (d *Dispatcher) applyStartLimits(env *Envelope) {
	settings := d.device.Settings()
	switch {
	case env.FastCharging && settings.FastCharging:
		d.device.UpdateSettings(func(s *models.DeviceSettings) { s.LimitA = 32 })
	case env.LimitA > 0:
		limit := min(max(env.LimitA, 8), 32)
		d.device.UpdateSettings(func(s *models.DeviceSettings) { s.LimitA = limit })
	default:
		return
	}
	d.persistDevice()
}
