package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargersim/internal/structures"
)

func loggerConfig(dir string) *structures.Config {
	return &structures.Config{
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0o644,
			Dir:   dir,
		},
	}
}

func TestNewLogProvider_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogProvider(loggerConfig(dir))
	require.NoError(t, err)
	defer logger.Close()

	logger.Infof(TypeApp, "started")
	for _, name := range []string{"app.log", "ws.log", "http.log", "telemetry.log"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestNewLogProvider_RoutesChannels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := NewLogProvider(loggerConfig(dir))
	require.NoError(t, err)

	logger.Infof(TypeWs, "client connected")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "ws.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "client connected")

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(app), "client connected")
}

func TestNewLogProvider_InvalidLevel(t *testing.T) {
	conf := loggerConfig(t.TempDir())
	conf.Logger.Level = "verbose"

	_, err := NewLogProvider(conf)
	assert.Error(t, err)
}
