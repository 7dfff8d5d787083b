package models

import "time"

// ChargeEvent is the broadcast emitted when a session starts or stops.
type ChargeEvent struct {
	Type      string          `json:"type"`
	Command   string          `json:"command"`
	Success   bool            `json:"success"`
	Data      ChargeEventData `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type ChargeEventData struct {
	SessionID       string     `json:"sessionId"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	EnergyDelivered *float64   `json:"energyDelivered,omitempty"`
	Message         string     `json:"message"`
}

// TapEvent is broadcast to every client after an RFID tap, accepted or not.
type TapEvent struct {
	Type      string       `json:"type"`
	Event     string       `json:"event"`
	Data      TapEventData `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

type TapEventData struct {
	ID        string  `json:"id"`
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	SessionID *string `json:"sessionId"`
	Charging  bool    `json:"charging"`
}
