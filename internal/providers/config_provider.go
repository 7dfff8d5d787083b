package providers

import (
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"strings"
	"time"

	"chargersim/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "CHARGESIM_LOG_LEVEL")
	viper.BindEnv("telemetry.interval", "CHARGESIM_TELEMETRY_INTERVAL")
	viper.BindEnv("persistence.saveInterval", "CHARGESIM_SAVE_INTERVAL")
	viper.BindEnv("webSocket.port", "CHARGESIM_WS_PORT")
	viper.BindEnv("webServer.port", "CHARGESIM_HTTP_PORT")
	viper.BindEnv("device.id", "CHARGESIM_DEVICE_ID")
	viper.BindEnv("cache.enabled", "CHARGESIM_CACHE_ENABLED")
	viper.BindEnv("cache.size", "CHARGESIM_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	if conf.WebSocket.ListenPath == "" {
		conf.WebSocket.ListenPath = "/"
	}
	if conf.WebSocket.MaxMessageSize <= 0 {
		conf.WebSocket.MaxMessageSize = 32 * 1024
	}
	if conf.Telemetry.Debounce <= 0 {
		conf.Telemetry.Debounce = 100 * time.Millisecond
	}

	conf.AppName = "ChargerSimulator"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
