package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir()) // no config file present
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log level: %q", cfg.Log.Level)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("broker: %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Topic != "sensors/cooling_tower" {
		t.Errorf("topic: %q", cfg.MQTT.Topic)
	}
	if cfg.Control.LoopMs != 50 || cfg.Control.WindowMs != 1000 {
		t.Errorf("loop timings: %+v", cfg.Control)
	}
	if cfg.Control.FlowTimeoutMs != 12000 {
		t.Errorf("flow timeout: %d", cfg.Control.FlowTimeoutMs)
	}
	if cfg.Control.DutyPercent != 30 || cfg.Control.ThresholdLPM != 0.2 {
		t.Errorf("control defaults: %+v", cfg.Control)
	}
	if !cfg.Control.StartEnabled {
		t.Error("heater should default to enabled")
	}
	if cfg.Net.ReconnectIntervalMs != 5000 {
		t.Errorf("reconnect interval: %d", cfg.Net.ReconnectIntervalMs)
	}
	if cfg.Device.PeerID != "TOWER_SENSOR_01" {
		t.Errorf("peer id: %q", cfg.Device.PeerID)
	}
	if cfg.GPIO.RelayPin != 17 || cfg.GPIO.FlowPin != 22 {
		t.Errorf("gpio pins: %+v", cfg.GPIO)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yml := `
log:
  level: debug
mqtt:
  broker: ssl://broker.example.com:8883
  username: tower
  password: hunter2
device:
  id: TOWER_HEATER_02
control:
  duty_percent: 45
  threshold_lpm: 0.5
http:
  addr: ":8080"
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level: %q", cfg.Log.Level)
	}
	if cfg.MQTT.Broker != "ssl://broker.example.com:8883" {
		t.Errorf("broker: %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Username != "tower" || cfg.MQTT.Password != "hunter2" {
		t.Errorf("credentials: %q/%q", cfg.MQTT.Username, cfg.MQTT.Password)
	}
	if cfg.Device.ID != "TOWER_HEATER_02" {
		t.Errorf("device id: %q", cfg.Device.ID)
	}
	if cfg.Control.DutyPercent != 45 || cfg.Control.ThresholdLPM != 0.5 {
		t.Errorf("control overrides: %+v", cfg.Control)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr: %q", cfg.HTTP.Addr)
	}

	// Untouched keys keep their defaults.
	if cfg.Control.WindowMs != 1000 {
		t.Errorf("window default lost: %d", cfg.Control.WindowMs)
	}
	if cfg.Device.PeerID != "TOWER_SENSOR_01" {
		t.Errorf("peer default lost: %q", cfg.Device.PeerID)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mqtt: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadRejectsDegenerateControlTimings(t *testing.T) {
	cases := []struct {
		name string
		yml  string
	}{
		{"zero window", "control:\n  window_ms: 0\n"},
		{"negative window", "control:\n  window_ms: -500\n"},
		{"zero loop", "control:\n  loop_ms: 0\n"},
		{"zero flow timeout", "control:\n  flow_timeout_ms: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tc.yml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("expected error for degenerate control timing")
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TOWER_MQTT_BROKER", "tcp://10.0.0.5:1883")
	t.Setenv("TOWER_LOG_LEVEL", "warn")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("env broker override: %q", cfg.MQTT.Broker)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env level override: %q", cfg.Log.Level)
	}
}
