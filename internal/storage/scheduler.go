package storage

import (
	"sync"

	"github.com/roylee0704/gron"

	"chargersim/internal/models"
	"chargersim/internal/providers"
	"chargersim/internal/services"
	"chargersim/internal/structures"
)

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

// Scheduler owns the periodic snapshot of the whole device: session log,
// RFID registry, network config and the settings/counter blob. Services also
// persist eagerly after mutations; the periodic pass is the backstop that
// catches anything they missed (energy accrued mid-session, for one).
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	store    StoreInterface
	device   *models.DeviceStateStore
	sessions services.SessionServiceInterface
	rfids    services.RfidServiceInterface
	cron     *gron.Cron
	opsMu    sync.Mutex
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	store StoreInterface,
	device *models.DeviceStateStore,
	sessions services.SessionServiceInterface,
	rfids services.RfidServiceInterface,
) SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		store:    store,
		device:   device,
		sessions: sessions,
		rfids:    rfids,
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.persistAll(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		state := s.device.Snapshot()
		s.logger.Infof(providers.TypeApp, "Persisted state: %d sessions, %d rfids, %.3f kWh lifetime",
			s.sessions.Count(), s.rfids.Count(), state.LifetimeEnergyKWh)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore loads every persisted blob and hands it to its owner. Missing files
// leave the defaults in place; a corrupt blob aborts startup.
func (s *Scheduler) Restore() error {
	var snap models.DeviceSnapshot
	found, err := s.store.Load(KeyDevice, &snap)
	if err != nil {
		return err
	}
	if found {
		s.device.RestoreSnapshot(snap)
	}

	var sessions []*models.ChargingSession
	if _, err := s.store.Load(KeySessions, &sessions); err != nil {
		return err
	}
	s.sessions.Restore(sessions, snap.SessionCounter)

	var rfids []models.RfidRecord
	if _, err := s.store.Load(KeyRfids, &rfids); err != nil {
		return err
	}
	s.rfids.Restore(rfids)

	var network models.NetworkConfig
	found, err = s.store.Load(KeyNetwork, &network)
	if err != nil {
		return err
	}
	if found {
		s.device.SetNetwork(network)
	}

	s.logger.Infof(providers.TypeApp, "Restored state: %d sessions, %d rfids, counter at %d",
		s.sessions.Count(), s.rfids.Count(), s.sessions.Counter())
	return nil
}

// Persist performs one full snapshot. Called on the periodic schedule and
// once more at shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
	return s.persistAll()
}

func (s *Scheduler) persistAll() error {
	sessions := s.sessions.History(0)
	// History returns newest first; store the log in insertion order.
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	if err := s.store.Save(KeySessions, sessions); err != nil {
		return err
	}
	if err := s.store.Save(KeyRfids, s.rfids.List()); err != nil {
		return err
	}
	if err := s.store.Save(KeyNetwork, s.device.Network()); err != nil {
		return err
	}
	return s.store.Save(KeyDevice, s.device.SnapshotForPersist(s.sessions.Counter()))
}
