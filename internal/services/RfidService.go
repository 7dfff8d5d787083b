package services

import (
	"fmt"
	"sync"

	"chargersim/internal/models"
	"chargersim/internal/providers"
)

const rfidKey = "rfids"

type TapResult struct {
	Accepted bool
	Message  string
	Session  *models.ChargingSession
	Started  bool
}

type RfidServiceInterface interface {
	Lookup(id string) (models.RfidRecord, bool)
	List() []models.RfidRecord
	Count() int
	Add(id, userID string) (models.RfidRecord, error)
	AddBatch(entries []any) int
	Delete(id string) error
	Sync(entries []any) (int, error)
	Tap(id string) TapResult
	Restore(records []models.RfidRecord)
}

// RfidService keeps the set of authorized tags. Mutations cascade into the
// session manager when they affect the currently-charging tag.
type RfidService struct {
	mu      sync.RWMutex
	records []models.RfidRecord

	sessions SessionServiceInterface
	store    Persister
	logger   providers.Logger
}

func NewRfidService(sessions SessionServiceInterface, store Persister, logger providers.Logger) RfidServiceInterface {
	return &RfidService{
		sessions: sessions,
		store:    store,
		logger:   logger,
	}
}

func (r *RfidService) Lookup(id string) (models.RfidRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.RfidRecord{}, false
}

func (r *RfidService) List() []models.RfidRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RfidRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *RfidService) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *RfidService) Add(id, userID string) (models.RfidRecord, error) {
	if id == "" {
		return models.RfidRecord{}, fmt.Errorf("rfid id required")
	}
	if userID == "" {
		userID = models.UnknownUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return models.RfidRecord{}, ErrDuplicateID
		}
	}
	rec := models.RfidRecord{Number: r.nextNumberLocked(), ID: id, UserID: userID}
	r.records = append(r.records, rec)
	r.persistLocked()
	r.logger.Infof(providers.TypeApp, "RFID added: %s", id)
	return rec, nil
}

// AddBatch inserts every entry that normalizes to a new tag and reports how
// many were added. Duplicates and invalid entries are skipped.
func (r *RfidService) AddBatch(entries []any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, entry := range entries {
		rec, ok := models.NormalizeRfidEntry(entry)
		if !ok {
			continue
		}
		exists := false
		for _, existing := range r.records {
			if existing.ID == rec.ID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		rec.Number = r.nextNumberLocked()
		r.records = append(r.records, rec)
		added++
	}
	if added > 0 {
		r.persistLocked()
	}
	r.logger.Infof(providers.TypeApp, "Added %d new RFIDs", added)
	return added
}

// Delete removes a tag. When the tag is currently charging, the session is
// stopped first.
func (r *RfidService) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, rec := range r.records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	r.sessions.StopIfTag(id, "tag revoked")
	r.records = append(r.records[:idx], r.records[idx+1:]...)
	r.persistLocked()
	r.logger.Infof(providers.TypeApp, "RFID deleted: %s", id)
	return nil
}

// Sync replaces the whole registry. Entries arrive in heterogeneous legacy
// shapes; invalid ones are skipped, the rest are renumbered densely from 1.
// When the currently-charging tag is absent from the new set its session is
// stopped before the registry is swapped. Not transactional against
// concurrent taps: last write wins.
func (r *RfidService) Sync(entries []any) (int, error) {
	processed := make([]models.RfidRecord, 0, len(entries))
	present := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		rec, ok := models.NormalizeRfidEntry(entry)
		if !ok {
			r.logger.Warnf(providers.TypeApp, "Skipping invalid RFID entry at index %d", i)
			continue
		}
		rec.Number = len(processed) + 1
		processed = append(processed, rec)
		present[rec.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.StopIfTagMissing(present, "RFID removed during sync")
	r.records = processed
	r.persistLocked()
	r.logger.Infof(providers.TypeApp, "RFIDs synced: %d tags", len(processed))
	return len(processed), nil
}

// Tap implements the authorization + toggle rule for a presented tag.
func (r *RfidService) Tap(id string) TapResult {
	rec, ok := r.Lookup(id)
	if !ok {
		return TapResult{Message: fmt.Sprintf("RFID %s not found in authorized list", id)}
	}

	session, started, err := r.sessions.TapToggle(rec.ID)
	if err != nil {
		return TapResult{Message: fmt.Sprintf("Cannot tap RFID %s - %s is currently charging", id, r.sessions.CurrentTag())}
	}
	if started {
		return TapResult{Accepted: true, Message: fmt.Sprintf("Charging started for RFID %s", id), Session: session, Started: true}
	}
	return TapResult{Accepted: true, Message: fmt.Sprintf("Charging stopped for RFID %s", id), Session: session}
}

func (r *RfidService) Restore(records []models.RfidRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
}

// nextNumberLocked keeps single adds dense without renumbering survivors of a
// prior delete. Caller holds r.mu.
func (r *RfidService) nextNumberLocked() int {
	next := 1
	for _, rec := range r.records {
		if rec.Number >= next {
			next = rec.Number + 1
		}
	}
	return next
}

func (r *RfidService) persistLocked() {
	snapshot := make([]models.RfidRecord, len(r.records))
	copy(snapshot, r.records)
	if err := r.store.Save(rfidKey, snapshot); err != nil {
		r.logger.Warnf(providers.TypeApp, "Failed to persist RFID list: %s", err)
	}
}
