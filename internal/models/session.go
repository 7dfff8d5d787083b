package models

import "time"

type SessionStatus string

const (
	SessionStarted   SessionStatus = "started"
	SessionCompleted SessionStatus = "completed"
)

// ChargingSession is one entry of the append-only session log. Completed
// sessions are retained forever; Unsynced marks entries not yet delivered to
// the external sync consumer.
type ChargingSession struct {
	SessionID string        `json:"sessionId"`
	Status    SessionStatus `json:"sessionStatus"`
	UserID    *string       `json:"sessionUserId"`
	RfidID    *string       `json:"rfidId"`
	StartAt   time.Time     `json:"startAt"`
	EndAt     *time.Time    `json:"endAt"`
	EnergyKWh float64       `json:"energykWh"`
	Unsynced  bool          `json:"unsynced"`
}

// Clone returns a copy safe to hand outside the session manager's lock.
func (s *ChargingSession) Clone() *ChargingSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
