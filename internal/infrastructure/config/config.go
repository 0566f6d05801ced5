package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for jughead-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// Enabled turns on the MQTT command bridge. When false the broker is never contacted.
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
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

// DispatchConfig contains settings for the ball command dispatcher.
type DispatchConfig struct {
	// Port is the UDP port balls listen on. Addresses with an explicit
	// host:port override it per device.
	Port int `yaml:"port"`

	// TimeoutMS bounds every send attempt (resolve, dial and write).
	TimeoutMS int `yaml:"timeout_ms"`

	// EventBuffer is the per-subscriber buffer for device state events.
	EventBuffer int `yaml:"event_buffer"`

	// Devices seeds address bindings at startup. An empty address leaves the
	// ball known but unbound.
	Devices []DeviceBinding `yaml:"devices"`
}

// DeviceBinding is a static ball id to address binding.
type DeviceBinding struct {
	ID      int    `yaml:"id"`
	Address string `yaml:"address"`
}

// DiscoveryConfig contains mDNS discovery settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Service is the DNS-SD service type balls advertise.
	Service string `yaml:"service"`

	// Domain is the mDNS browse domain.
	Domain string `yaml:"domain"`

	// Interface restricts browsing to one network interface. Empty means all.
	Interface string `yaml:"interface"`

	// Override lets discovered addresses replace manually bound ones.
	Override bool `yaml:"override"`

	// BrowseTimeout bounds discovery to a single startup scan, in seconds.
	// Zero browses until shutdown.
	BrowseTimeout int `yaml:"browse_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: JUGHEAD_SECTION_KEY
// For example: JUGHEAD_DATABASE_PATH, JUGHEAD_DISPATCH_TIMEOUT_MS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
//
// The four ball slots of the original controller are pre-declared unbound.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/jughead.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "jughead-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
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
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Dispatch: DispatchConfig{
			Port:        41412,
			TimeoutMS:   1000,
			EventBuffer: 64,
			Devices: []DeviceBinding{
				{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
			},
		},
		Discovery: DiscoveryConfig{
			Service: "_jughead-ball._udp",
			Domain:  "local.",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: JUGHEAD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("JUGHEAD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("JUGHEAD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("JUGHEAD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("JUGHEAD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("JUGHEAD_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("JUGHEAD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Dispatch
	if v := os.Getenv("JUGHEAD_DISPATCH_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.TimeoutMS = ms
		}
	}
	for i := range cfg.Dispatch.Devices {
		key := fmt.Sprintf("JUGHEAD_BALL_%d_ADDRESS", cfg.Dispatch.Devices[i].ID)
		if v, ok := os.LookupEnv(key); ok {
			cfg.Dispatch.Devices[i].Address = strings.TrimSpace(v)
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Dispatch.Port < 1 || c.Dispatch.Port > 65535 {
		errs = append(errs, "dispatch.port must be between 1 and 65535")
	}
	if c.Dispatch.TimeoutMS <= 0 {
		errs = append(errs, "dispatch.timeout_ms must be positive")
	}
	if c.Dispatch.EventBuffer < 0 {
		errs = append(errs, "dispatch.event_buffer must not be negative")
	}

	seen := make(map[int]bool, len(c.Dispatch.Devices))
	for _, d := range c.Dispatch.Devices {
		if d.ID < 1 {
			errs = append(errs, fmt.Sprintf("dispatch.devices: id %d must be positive", d.ID))
			continue
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Sprintf("dispatch.devices: duplicate id %d", d.ID))
		}
		seen[d.ID] = true
	}

	if c.Discovery.Enabled && c.Discovery.Service == "" {
		errs = append(errs, "discovery.service is required when discovery is enabled")
	}
	if c.Discovery.BrowseTimeout < 0 {
		errs = append(errs, "discovery.browse_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// GetDispatchTimeout returns the per-send timeout as a Duration.
func (c *Config) GetDispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutMS) * time.Millisecond
}

// GetBrowseTimeout returns the discovery scan window as a Duration.
func (c *Config) GetBrowseTimeout() time.Duration {
	return time.Duration(c.Discovery.BrowseTimeout) * time.Second
}
