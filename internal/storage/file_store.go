package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"chargersim/internal/providers"
	"chargersim/internal/structures"
)

// Well-known persistence keys.
const (
	KeyRfids    = "rfids"
	KeySessions = "sessions"
	KeyNetwork  = "network"
	KeyDevice   = "device"
)

type StoreInterface interface {
	Load(key string, out any) (bool, error)
	Save(key string, v any) error
}

// FileStore maps each key to a JSON file in the data dir. The session log is
// zstd-compressed, the small blobs stay plain JSON. Writes go through a tmp
// file and rename so a crash never leaves a torn blob behind.
type FileStore struct {
	dir        string
	compressor CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	mu         sync.Mutex
}

func NewFileStore(dir string, compressor CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:        dir,
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// NewStore builds the file store from the configured data dir.
func NewStore(conf *structures.Config, compressor CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (*FileStore, error) {
	return NewFileStore(conf.Persistence.Dir, compressor, logger, metrics)
}

func (f *FileStore) fileFor(key string) (path string, compressed bool) {
	if key == KeySessions {
		return filepath.Join(f.dir, key+".json.zst"), true
	}
	return filepath.Join(f.dir, key+".json"), false
}

// Load decodes the blob for key into out. A missing file is not an error: it
// returns (false, nil) and the caller keeps its fallback value.
func (f *FileStore) Load(key string, out any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, compressed := f.fileFor(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if compressed {
		data, err = f.compressor.Decompress(data)
		if err != nil {
			return false, fmt.Errorf("decompress %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (f *FileStore) Save(key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	path, compressed := f.fileFor(key)

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if compressed {
		data, err = f.compressor.Compress(data)
		if err != nil {
			return err
		}
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err = os.Rename(tmpFile, path); err != nil {
		return err
	}

	f.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

func (f *FileStore) Close() {
	f.compressor.Close()
}
