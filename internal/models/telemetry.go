package models

import "time"

// TelemetrySample is the measurement block of a telemetry push.
type TelemetrySample struct {
	Status       DeviceStatus `json:"status"`
	VoltageV     int          `json:"voltageV"`
	CurrentA     float64      `json:"currentA"`
	PowerKW      float64      `json:"powerKW"`
	Phases       int          `json:"phases"`
	TemperatureC float64      `json:"temperatureC"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// SessionView is the session snapshot embedded in telemetry: the live
// accumulated energy for an active session, the frozen value for a completed
// one.
type SessionView struct {
	SessionID string        `json:"sessionId"`
	Status    SessionStatus `json:"sessionStatus"`
	UserID    *string       `json:"sessionUserId"`
	StartAt   time.Time     `json:"startAt"`
	EndAt     *time.Time    `json:"endAt"`
	EnergyKWh float64       `json:"energykWh"`
	RfidID    *string       `json:"rfidId"`
}

// TelemetryEnvelope is the periodic unsolicited push sent to every client.
type TelemetryEnvelope struct {
	Event       string          `json:"event"`
	DeviceID    string          `json:"deviceId"`
	Telemetry   TelemetrySample `json:"telemetry"`
	LastSession *SessionView    `json:"lastSession"`
}

// HelloEnvelope is sent once, immediately after a client connects.
type HelloEnvelope struct {
	Event    string        `json:"event"`
	DeviceID string        `json:"deviceId"`
	Info     DeviceInfo    `json:"info"`
	Settings HelloSettings `json:"settings"`
	Warranty Warranty      `json:"warranty"`
	Rfids    []RfidRecord  `json:"rfids"`
	Network  HelloNetwork  `json:"network"`
	Status   HelloStatus   `json:"status"`
}

type DeviceInfo struct {
	Model       string `json:"model"`
	Serial      string `json:"serial"`
	FirmwareESP string `json:"firmwareESP"`
	FirmwareSTM string `json:"firmwareSTM"`
	Hardware    string `json:"hardware"`
}

type HelloSettings struct {
	RfidSupported bool   `json:"rfidSupported"`
	AutoPlug      bool   `json:"autoPlug"`
	FastCharging  bool   `json:"fastCharging"`
	Language      string `json:"language"`
	LimitA        int    `json:"limitA"`
}

type Warranty struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type HelloNetwork struct {
	Mode      string `json:"mode"`
	SSID      string `json:"ssid"`
	Connected bool   `json:"connected"`
	Local     bool   `json:"local"`
}

type HelloStatus struct {
	Charging   bool      `json:"charging"`
	Connected  bool      `json:"connected"`
	Error      *string   `json:"error"`
	LastUpdate time.Time `json:"lastUpdate"`
}
