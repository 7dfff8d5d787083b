package services

import (
	"fmt"
	"sync"
	"time"

	"chargersim/internal/models"
	"chargersim/internal/providers"
)

const sessionKey = "sessions"

type SessionServiceInterface interface {
	Start(userID, rfidID *string) *models.ChargingSession
	Stop(reason string) *models.ChargingSession
	TapToggle(rfidID string) (session *models.ChargingSession, started bool, err error)
	StopIfTag(rfidID, reason string) *models.ChargingSession
	StopIfTagMissing(present map[string]struct{}, reason string) *models.ChargingSession
	Active() *models.ChargingSession
	CurrentTag() string
	History(limit int) []*models.ChargingSession
	Find(sessionID string) *models.ChargingSession
	Unsynced(batchSize int) []*models.ChargingSession
	AckSynced(sessionIDs []string) int
	Count() int
	Counter() uint64
	Restore(log []*models.ChargingSession, counter uint64)
}

// SessionService owns the active-session slot, session identity allocation
// and the append-only session log. Every transition that clears the slot
// funnels through stopLocked, so the single-active-session invariant has one
// choke point.
type SessionService struct {
	mu      sync.Mutex
	counter uint64
	current *models.ChargingSession
	log     []*models.ChargingSession

	device  *models.DeviceStateStore
	store   Persister
	relay   *BroadcastRelay
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewSessionService(device *models.DeviceStateStore, store Persister, relay *BroadcastRelay, logger providers.Logger, metrics providers.MetricsProviderInterface) SessionServiceInterface {
	return &SessionService{
		device:  device,
		store:   store,
		relay:   relay,
		logger:  logger,
		metrics: metrics,
	}
}

// Start opens a fresh session. An already-active session is force-stopped
// first, so callers are always handed a new one.
func (s *SessionService) Start(userID, rfidID *string) *models.ChargingSession {
	s.mu.Lock()
	var events []interface{}
	if stopped := s.stopLocked("Previous session auto-stopped"); stopped != nil {
		events = append(events, stopEvent(stopped))
		s.metrics.IncSessionCompleted()
	}

	s.counter++
	now := time.Now().UTC()
	session := &models.ChargingSession{
		SessionID: fmt.Sprintf("session_%09d", s.counter),
		Status:    models.SessionStarted,
		UserID:    userID,
		RfidID:    rfidID,
		StartAt:   now,
		Unsynced:  true,
	}
	s.log = append(s.log, session)
	s.current = session

	tag := ""
	if rfidID != nil {
		tag = *rfidID
	}
	s.device.BeginSession(tag)
	s.logger.Infof(providers.TypeApp, "Session started: %s (%s)", session.SessionID, initiatorLabel(userID, rfidID))
	result := session.Clone()
	s.mu.Unlock()

	s.metrics.IncSessionStarted()
	events = append(events, startEvent(result))
	s.persist()
	for _, ev := range events {
		s.relay.Broadcast(ev)
	}
	return result
}

// Stop completes the active session, or returns nil when the device is idle.
func (s *SessionService) Stop(reason string) *models.ChargingSession {
	s.mu.Lock()
	stopped := s.stopLocked(reason)
	s.mu.Unlock()

	if stopped == nil {
		return nil
	}
	s.metrics.IncSessionCompleted()
	s.persist()
	s.relay.Broadcast(stopEvent(stopped))
	return stopped
}

// TapToggle applies the tap rule against the active-session slot for an
// already-authorized tag: stop when this tag is charging, start when idle,
// ErrTagBusy when a different tag holds the session.
func (s *SessionService) TapToggle(rfidID string) (*models.ChargingSession, bool, error) {
	s.mu.Lock()
	if s.current != nil {
		activeTag := ""
		if s.current.RfidID != nil {
			activeTag = *s.current.RfidID
		}
		if activeTag != rfidID {
			s.mu.Unlock()
			return nil, false, ErrTagBusy
		}
		stopped := s.stopLocked("RFID tap stop")
		s.mu.Unlock()

		s.metrics.IncSessionCompleted()
		s.persist()
		s.relay.Broadcast(stopEvent(stopped))
		return stopped, false, nil
	}
	s.mu.Unlock()

	return s.Start(nil, &rfidID), true, nil
}

// StopIfTag stops the active session when it is bound to rfidID.
func (s *SessionService) StopIfTag(rfidID, reason string) *models.ChargingSession {
	s.mu.Lock()
	if s.current == nil || s.current.RfidID == nil || *s.current.RfidID != rfidID {
		s.mu.Unlock()
		return nil
	}
	stopped := s.stopLocked(reason)
	s.mu.Unlock()

	s.metrics.IncSessionCompleted()
	s.persist()
	s.relay.Broadcast(stopEvent(stopped))
	return stopped
}

// StopIfTagMissing stops the active session when its tag is absent from the
// given set. Used by the registry's wholesale sync.
func (s *SessionService) StopIfTagMissing(present map[string]struct{}, reason string) *models.ChargingSession {
	s.mu.Lock()
	if s.current == nil || s.current.RfidID == nil {
		s.mu.Unlock()
		return nil
	}
	if _, ok := present[*s.current.RfidID]; ok {
		s.mu.Unlock()
		return nil
	}
	stopped := s.stopLocked(reason)
	s.mu.Unlock()

	s.metrics.IncSessionCompleted()
	s.persist()
	s.relay.Broadcast(stopEvent(stopped))
	return stopped
}

// stopLocked is the single choke point clearing the active-session slot.
// Caller holds s.mu. Returns a clone of the completed session or nil.
func (s *SessionService) stopLocked(reason string) *models.ChargingSession {
	if s.current == nil {
		return nil
	}
	now := time.Now().UTC()
	energy := s.device.EndSession()

	s.current.EndAt = &now
	s.current.Status = models.SessionCompleted
	s.current.EnergyKWh = energy

	completed := s.current.Clone()
	s.current = nil
	s.logger.Infof(providers.TypeApp, "Session completed: %s | %.3f kWh | %s", completed.SessionID, energy, reason)
	return completed
}

func (s *SessionService) Active() *models.ChargingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *SessionService) CurrentTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.RfidID == nil {
		return ""
	}
	return *s.current.RfidID
}

// History returns up to limit sessions, most recent first.
func (s *SessionService) History(limit int) []*models.ChargingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	out := make([]*models.ChargingSession, 0, limit)
	for i := len(s.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.log[i].Clone())
	}
	return out
}

func (s *SessionService) Find(sessionID string) *models.ChargingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.log {
		if sess.SessionID == sessionID {
			return sess.Clone()
		}
	}
	return nil
}

// Unsynced returns the oldest batch of unsynced sessions and marks them
// synced. At-most-once: a batch is handed out a single time, even if the
// consumer fails to process it.
func (s *SessionService) Unsynced(batchSize int) []*models.ChargingSession {
	if batchSize <= 0 {
		batchSize = 5
	}
	s.mu.Lock()
	var batch []*models.ChargingSession
	for _, sess := range s.log {
		if len(batch) >= batchSize {
			break
		}
		if sess.Unsynced {
			sess.Unsynced = false
			batch = append(batch, sess.Clone())
		}
	}
	s.mu.Unlock()

	if len(batch) > 0 {
		s.logger.Warnf(providers.TypeApp, "Handed out %d unsynced sessions; delivery is at-most-once, they are now marked synced", len(batch))
		s.persist()
	}
	return batch
}

// AckSynced clears the unsynced flag on the named sessions and returns how
// many were updated.
func (s *SessionService) AckSynced(sessionIDs []string) int {
	ids := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		ids[id] = struct{}{}
	}

	s.mu.Lock()
	updated := 0
	for _, sess := range s.log {
		if _, ok := ids[sess.SessionID]; ok && sess.Unsynced {
			sess.Unsynced = false
			updated++
		}
	}
	s.mu.Unlock()

	if updated > 0 {
		s.persist()
	}
	return updated
}

func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

func (s *SessionService) Counter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Restore loads the persisted session log and counter at startup. Any session
// persisted as started is closed out: the process that owned it is gone.
func (s *SessionService) Restore(log []*models.ChargingSession, counter uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = log
	s.counter = counter
	for _, sess := range s.log {
		if n, ok := sessionNumber(sess.SessionID); ok && n > s.counter {
			s.counter = n
		}
		if sess.Status == models.SessionStarted {
			now := time.Now().UTC()
			sess.Status = models.SessionCompleted
			sess.EndAt = &now
			s.logger.Warnf(providers.TypeApp, "Closed stale session %s left over from previous run", sess.SessionID)
		}
	}
}

func (s *SessionService) persist() {
	s.mu.Lock()
	snapshot := make([]*models.ChargingSession, len(s.log))
	for i, sess := range s.log {
		snapshot[i] = sess.Clone()
	}
	s.mu.Unlock()

	if err := s.store.Save(sessionKey, snapshot); err != nil {
		s.logger.Warnf(providers.TypeApp, "Failed to persist session log: %s", err)
	}
}

func sessionNumber(sessionID string) (uint64, bool) {
	var n uint64
	if _, err := fmt.Sscanf(sessionID, "session_%09d", &n); err != nil {
		return 0, false
	}
	return n, true
}

func initiatorLabel(userID, rfidID *string) string {
	if rfidID != nil {
		return "RFID " + *rfidID
	}
	if userID != nil {
		return "user " + *userID
	}
	return "manual"
}

func startEvent(session *models.ChargingSession) *models.ChargeEvent {
	start := session.StartAt
	return &models.ChargeEvent{
		Type:    "event",
		Command: "start_charging",
		Success: true,
		Data: models.ChargeEventData{
			SessionID: session.SessionID,
			StartTime: &start,
			Message:   "Charging started successfully",
		},
		Timestamp: time.Now().UTC(),
	}
}

func stopEvent(session *models.ChargingSession) *models.ChargeEvent {
	energy := session.EnergyKWh
	return &models.ChargeEvent{
		Type:    "event",
		Command: "stop_charging",
		Success: true,
		Data: models.ChargeEventData{
			SessionID:       session.SessionID,
			EndTime:         session.EndAt,
			EnergyDelivered: &energy,
			Message:         "Charging stopped successfully",
		},
		Timestamp: time.Now().UTC(),
	}
}
