package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type DeviceConfig struct {
	ID            string    `yaml:"id" validate:"required"`
	Model         string    `yaml:"model" validate:"required"`
	Serial        string    `yaml:"serial" validate:"required"`
	FirmwareESP   string    `yaml:"firmwareESP"`
	FirmwareSTM   string    `yaml:"firmwareSTM"`
	Hardware      string    `yaml:"hardware"`
	Phases        int       `yaml:"phases" validate:"required|min:1|max:3"`
	LimitA        int       `yaml:"limitA" validate:"required|min:6|max:32"`
	WarrantyStart time.Time `yaml:"warrantyStart"`
	WarrantyEnd   time.Time `yaml:"warrantyEnd"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval" validate:"required|min:1"`
	Debounce time.Duration `yaml:"debounce"`
}

type WebSocketConfig struct {
	Host           string `yaml:"host" validate:"required"`
	Port           int    `yaml:"port" validate:"required|uint|min:1"`
	ListenPath     string `yaml:"listenPath"`
	MaxMessageSize int64  `yaml:"maxMessageSize"`
}

type Persistence struct {
	Dir          string        `yaml:"dir" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Device      DeviceConfig    `yaml:"device"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	WebSocket   WebSocketConfig `yaml:"webSocket"`
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}
