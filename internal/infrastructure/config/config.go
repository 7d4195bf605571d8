package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sync personalities accepted in sync.mode.
const (
	ModePlugin = "plugin"
	ModeFX     = "fx"
)

// Config is the root configuration structure for the ScopeSync service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Device     DeviceConfig     `yaml:"device"`
	MIDI       MIDIConfig       `yaml:"midi"`
	Sync       SyncConfig       `yaml:"sync"`
	Parameters ParametersConfig `yaml:"parameters"`
}

// InstanceConfig identifies this service instance.
type InstanceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DeviceConfig contains the OSC link to the Scope device.
type DeviceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`
	RemoteHost string `yaml:"remote_host"`
	RemotePort int    `yaml:"remote_port"`

	// Session is the initial device session identifier used in addresses.
	Session int `yaml:"session"`

	// ConfigUID selects the stored parameter values restored at startup.
	ConfigUID int `yaml:"config_uid"`
}

// MIDIConfig contains MIDI control surface settings.
type MIDIConfig struct {
	Enabled bool `yaml:"enabled"`

	// InputPort is matched against the available MIDI input port names.
	InputPort string `yaml:"input_port"`
}

// SyncConfig contains parameter synchronisation timing and policy.
type SyncConfig struct {
	Mode              string        `yaml:"mode"`
	DeadTime          time.Duration `yaml:"dead_time"`
	SourceBlock       time.Duration `yaml:"source_block"`
	SendMute          time.Duration `yaml:"send_mute"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	SnapshotStep      time.Duration `yaml:"snapshot_step"`
	EnableScopeInputs bool          `yaml:"enable_scope_inputs"`
	HostSlots         int           `yaml:"host_slots"`
}

// ParametersConfig locates the parameter definition file.
type ParametersConfig struct {
	File string `yaml:"file"`
}

// Load layers the YAML file at path over Default, then applies
// SCOPESYNC_<SECTION>_<KEY> environment overrides (SCOPESYNC_DATABASE_PATH,
// SCOPESYNC_SYNC_MODE, ...) and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Instance: InstanceConfig{
			ID:   "scopesync-001",
			Name: "ScopeSync",
		},
		Database: DatabaseConfig{
			Path:        "./data/scopesync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "scopesync-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix:    "scopesync",
			HealthInterval: 30,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Device: DeviceConfig{
			Enabled:    true,
			ListenPort: 8002,
			RemoteHost: "127.0.0.1",
			RemotePort: 8001,
		},
		Sync: SyncConfig{
			Mode:         ModePlugin,
			DeadTime:     100 * time.Millisecond,
			SourceBlock:  200 * time.Millisecond,
			SendMute:     500 * time.Millisecond,
			PollInterval: 100 * time.Millisecond,
			SnapshotStep: 100 * time.Millisecond,
			HostSlots:    512,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SCOPESYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("SCOPESYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SCOPESYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SCOPESYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SCOPESYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SCOPESYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SCOPESYNC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("SCOPESYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("SCOPESYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Device
	if v := os.Getenv("SCOPESYNC_DEVICE_REMOTE_HOST"); v != "" {
		cfg.Device.RemoteHost = v
	}

	// Sync
	if v := os.Getenv("SCOPESYNC_SYNC_MODE"); v != "" {
		cfg.Sync.Mode = v
	}

	// Parameters
	if v := os.Getenv("SCOPESYNC_PARAMETERS_FILE"); v != "" {
		cfg.Parameters.File = v
	}
}

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Instance.ID == "" {
		errs = append(errs, "instance.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if !validPort(c.API.Port) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Device.Enabled {
		if !validPort(c.Device.ListenPort) {
			errs = append(errs, "device.listen_port must be between 1 and 65535")
		}
		if !validPort(c.Device.RemotePort) {
			errs = append(errs, "device.remote_port must be between 1 and 65535")
		}
		if c.Device.RemoteHost == "" {
			errs = append(errs, "device.remote_host is required when the device link is enabled")
		}
	}
	if c.Device.Session < 0 {
		errs = append(errs, "device.session must not be negative")
	}

	if c.MIDI.Enabled && c.MIDI.InputPort == "" {
		errs = append(errs, "midi.input_port is required when midi is enabled")
	}

	errs = append(errs, c.Sync.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SyncConfig) validate() []string {
	var errs []string

	if s.Mode != ModePlugin && s.Mode != ModeFX {
		errs = append(errs, fmt.Sprintf("sync.mode must be %q or %q", ModePlugin, ModeFX))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, "sync.poll_interval must be positive")
	}
	if s.SourceBlock < s.PollInterval {
		errs = append(errs, "sync.source_block must not be shorter than sync.poll_interval")
	}
	if s.SendMute < s.SourceBlock {
		errs = append(errs, "sync.send_mute must not be shorter than sync.source_block")
	}
	if s.DeadTime < s.PollInterval {
		errs = append(errs, "sync.dead_time must not be shorter than sync.poll_interval")
	}
	if s.SnapshotStep <= 0 {
		errs = append(errs, "sync.snapshot_step must be positive")
	}
	if s.HostSlots < 1 {
		errs = append(errs, "sync.host_slots must be at least 1")
	}

	return errs
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetHealthInterval returns the MQTT health publish period.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.MQTT.HealthInterval) * time.Second
}
