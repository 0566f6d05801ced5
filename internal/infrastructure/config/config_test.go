package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
dispatch:
  port: 41412
  timeout_ms: 750
  devices:
    - id: 1
      address: "192.168.1.50"
    - id: 2
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.GetDispatchTimeout() != 750*time.Millisecond {
		t.Errorf("GetDispatchTimeout() = %v, want 750ms", cfg.GetDispatchTimeout())
	}
	if len(cfg.Dispatch.Devices) != 2 {
		t.Fatalf("len(Dispatch.Devices) = %d, want 2", len(cfg.Dispatch.Devices))
	}
	if cfg.Dispatch.Devices[0].Address != "192.168.1.50" {
		t.Errorf("Devices[0].Address = %q, want %q", cfg.Dispatch.Devices[0].Address, "192.168.1.50")
	}
	if cfg.Dispatch.Devices[1].Address != "" {
		t.Errorf("Devices[1].Address = %q, want empty", cfg.Dispatch.Devices[1].Address)
	}

	// Sections absent from the file keep their defaults.
	if cfg.Discovery.Service != "_jughead-ball._udp" {
		t.Errorf("Discovery.Service = %q, want default", cfg.Discovery.Service)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
dispatch:
  timeout_ms: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for zero timeout, got nil")
	}
	if !strings.Contains(err.Error(), "dispatch.timeout_ms") {
		t.Errorf("error = %q, want mention of dispatch.timeout_ms", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "mqtt enabled without host", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker.Host = ""
		}, wantErr: true},
		{name: "mqtt disabled without host", mutate: func(c *Config) { c.MQTT.Broker.Host = "" }},
		{name: "invalid api port", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "api disabled ignores port", mutate: func(c *Config) {
			c.API.Enabled = false
			c.API.Port = 0
		}},
		{name: "invalid dispatch port", mutate: func(c *Config) { c.Dispatch.Port = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Dispatch.TimeoutMS = -5 }, wantErr: true},
		{name: "negative event buffer", mutate: func(c *Config) { c.Dispatch.EventBuffer = -1 }, wantErr: true},
		{name: "zero device id", mutate: func(c *Config) {
			c.Dispatch.Devices = []DeviceBinding{{ID: 0}}
		}, wantErr: true},
		{name: "duplicate device id", mutate: func(c *Config) {
			c.Dispatch.Devices = []DeviceBinding{{ID: 3}, {ID: 3, Address: "10.0.0.3"}}
		}, wantErr: true},
		{name: "discovery without service", mutate: func(c *Config) {
			c.Discovery.Enabled = true
			c.Discovery.Service = ""
		}, wantErr: true},
		{name: "negative browse timeout", mutate: func(c *Config) { c.Discovery.BrowseTimeout = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Dispatch:  DispatchConfig{TimeoutMS: 1000},
		Discovery: DiscoveryConfig{BrowseTimeout: 5},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetDispatchTimeout(); got != time.Second {
		t.Errorf("GetDispatchTimeout() = %v, want 1s", got)
	}
	if got := cfg.GetBrowseTimeout(); got != 5*time.Second {
		t.Errorf("GetBrowseTimeout() = %v, want 5s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("JUGHEAD_DATABASE_PATH", "/custom/path.db")
	t.Setenv("JUGHEAD_MQTT_HOST", "mqtt.example.com")
	t.Setenv("JUGHEAD_MQTT_USERNAME", "testuser")
	t.Setenv("JUGHEAD_MQTT_PASSWORD", "testpass")
	t.Setenv("JUGHEAD_API_HOST", "192.168.1.1")
	t.Setenv("JUGHEAD_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("JUGHEAD_DISPATCH_TIMEOUT_MS", "250")
	t.Setenv("JUGHEAD_BALL_2_ADDRESS", " 10.0.0.2 ")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Dispatch.TimeoutMS != 250 {
		t.Errorf("Dispatch.TimeoutMS = %d, want 250", cfg.Dispatch.TimeoutMS)
	}
	if cfg.Dispatch.Devices[1].Address != "10.0.0.2" {
		t.Errorf("Devices[1].Address = %q, want %q", cfg.Dispatch.Devices[1].Address, "10.0.0.2")
	}
	if cfg.Dispatch.Devices[0].Address != "" {
		t.Errorf("Devices[0].Address = %q, want empty", cfg.Dispatch.Devices[0].Address)
	}
}

func TestApplyEnvOverrides_BadTimeoutIgnored(t *testing.T) {
	cfg := Default()
	t.Setenv("JUGHEAD_DISPATCH_TIMEOUT_MS", "soon")

	applyEnvOverrides(cfg)

	if cfg.Dispatch.TimeoutMS != 1000 {
		t.Errorf("Dispatch.TimeoutMS = %d, want 1000", cfg.Dispatch.TimeoutMS)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path == "" {
		t.Error("Default should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("Default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Enabled {
		t.Error("Default MQTT.Enabled = true, want false")
	}
	if cfg.Dispatch.Port != 41412 {
		t.Errorf("Default Dispatch.Port = %d, want 41412", cfg.Dispatch.Port)
	}
	if cfg.Dispatch.TimeoutMS != 1000 {
		t.Errorf("Default Dispatch.TimeoutMS = %d, want 1000", cfg.Dispatch.TimeoutMS)
	}
	if len(cfg.Dispatch.Devices) != 4 {
		t.Errorf("Default len(Dispatch.Devices) = %d, want 4", len(cfg.Dispatch.Devices))
	}
}
