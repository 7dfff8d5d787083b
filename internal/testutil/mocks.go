package testutil

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"chargersim/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Warnings returns the recorded warn-level formats.
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Logs {
		if e.Level == "warn" {
			out = append(out, e.Format)
		}
	}
	return out
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu                sync.Mutex
	Commands          map[string]int // dialect:command:outcome
	Broadcasts        int
	SessionsStarted   int
	SessionsCompleted int
	TelemetryTicks    int
	ConnectedClients  int
	CacheHits         int
	CacheMisses       int
	PersistenceObs    int
	Requests          map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Commands: make(map[string]int),
		Requests: make(map[string]int),
	}
}

func (m *MockMetrics) IncCommand(dialect, command, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands[dialect+":"+command+":"+outcome]++
}

func (m *MockMetrics) IncBroadcast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Broadcasts++
}

func (m *MockMetrics) IncSessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsStarted++
}

func (m *MockMetrics) IncSessionCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsCompleted++
}

func (m *MockMetrics) IncTelemetryTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelemetryTicks++
}

func (m *MockMetrics) SetConnectedClients(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectedClients = count
}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistenceObs++
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

// MockStore is an in-memory persistence gateway. It satisfies both
// storage.StoreInterface and services.Persister.
type MockStore struct {
	mu      sync.Mutex
	Data    map[string][]byte
	SaveErr error
	LoadErr error
	Saves   map[string]int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Data:  make(map[string][]byte),
		Saves: make(map[string]int),
	}
}

func (m *MockStore) Load(key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return false, m.LoadErr
	}
	data, ok := m.Data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}

func (m *MockStore) Save(key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.Data[key] = data
	m.Saves[key]++
	return nil
}

// MockBroadcaster implements services.Broadcaster and records everything.
type MockBroadcaster struct {
	mu       sync.Mutex
	Messages []interface{}
	Nudges   int
}

func (m *MockBroadcaster) Broadcast(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, v)
}

func (m *MockBroadcaster) NudgeTelemetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nudges++
}

func (m *MockBroadcaster) Sent() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interface{}, len(m.Messages))
	copy(out, m.Messages)
	return out
}

func (m *MockBroadcaster) NudgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Nudges
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements storage.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}
