// Package config loads tower node configuration from a YAML file with
// environment-variable overrides (prefix TOWER_, dots become underscores).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full configuration surface shared by the tower binaries.
// Each binary reads only the sections it needs.
type Config struct {
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	MQTT struct {
		// Broker is a full URL, e.g. tcp://192.168.1.200:1883 or
		// ssl://broker.example.com:8883.
		Broker      string `mapstructure:"broker"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		Topic       string `mapstructure:"topic"`
		StatusTopic string `mapstructure:"status_topic"`
	} `mapstructure:"mqtt"`

	Device struct {
		ID     string `mapstructure:"id"`
		PeerID string `mapstructure:"peer_id"` // counterpart node whose telemetry we trust
	} `mapstructure:"device"`

	Control struct {
		LoopMs        int     `mapstructure:"loop_ms"`
		WindowMs      int     `mapstructure:"window_ms"`
		FlowTimeoutMs int     `mapstructure:"flow_timeout_ms"`
		DutyPercent   int     `mapstructure:"duty_percent"`
		ThresholdLPM  float64 `mapstructure:"threshold_lpm"`
		IndicatorMs   int     `mapstructure:"indicator_ms"`
		StartEnabled  bool    `mapstructure:"start_enabled"`
	} `mapstructure:"control"`

	Net struct {
		Interface           string `mapstructure:"interface"`
		CheckIntervalMs     int    `mapstructure:"check_interval_ms"`
		ConnectTimeoutMs    int    `mapstructure:"connect_timeout_ms"`
		PortalTimeoutMs     int    `mapstructure:"portal_timeout_ms"`
		ReconnectIntervalMs int    `mapstructure:"reconnect_interval_ms"`
	} `mapstructure:"net"`

	GPIO struct {
		Chip         string `mapstructure:"chip"`
		RelayPin     int    `mapstructure:"relay_pin"`
		IndicatorPin int    `mapstructure:"indicator_pin"`
		FlowPin      int    `mapstructure:"flow_pin"`
	} `mapstructure:"gpio"`

	Sensor struct {
		PublishMs int `mapstructure:"publish_ms"`
		BufferLen int `mapstructure:"buffer_len"`
		// WaterInID and WaterOutID are 1-wire device ids of the DS18B20
		// probes, e.g. 28-0316a2795b3c. Empty means not fitted.
		WaterInID  string `mapstructure:"water_in_id"`
		WaterOutID string `mapstructure:"water_out_id"`
		// AirIIODir is the iio sysfs directory of the air sensor, e.g.
		// /sys/bus/iio/devices/iio:device0. Empty means not fitted.
		AirIIODir string `mapstructure:"air_iio_dir"`
	} `mapstructure:"sensor"`

	HTTP struct {
		Addr string `mapstructure:"addr"` // empty disables the status server
	} `mapstructure:"http"`

	Influx struct {
		URL    string `mapstructure:"url"`
		Token  string `mapstructure:"token"`
		Org    string `mapstructure:"org"`
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"influx"`
}

// Load reads config.yaml from dir. A missing file is not an error; defaults
// and TOWER_* environment variables still apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("tower")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects tunables the control loop cannot run on.
func (c *Config) validate() error {
	if c.Control.LoopMs <= 0 {
		return fmt.Errorf("config: control.loop_ms must be positive, got %d", c.Control.LoopMs)
	}
	if c.Control.WindowMs <= 0 {
		return fmt.Errorf("config: control.window_ms must be positive, got %d", c.Control.WindowMs)
	}
	if c.Control.FlowTimeoutMs <= 0 {
		return fmt.Errorf("config: control.flow_timeout_ms must be positive, got %d", c.Control.FlowTimeoutMs)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "sensors/cooling_tower")
	v.SetDefault("mqtt.status_topic", "sensors/cooling_tower/status")

	v.SetDefault("device.id", "TOWER_HEATER_01")
	v.SetDefault("device.peer_id", "TOWER_SENSOR_01")

	v.SetDefault("control.loop_ms", 50)
	v.SetDefault("control.window_ms", 1000)
	v.SetDefault("control.flow_timeout_ms", 12000)
	v.SetDefault("control.duty_percent", 30)
	v.SetDefault("control.threshold_lpm", 0.2)
	v.SetDefault("control.indicator_ms", 200)
	v.SetDefault("control.start_enabled", true)

	v.SetDefault("net.interface", "wlan0")
	v.SetDefault("net.check_interval_ms", 10000)
	v.SetDefault("net.connect_timeout_ms", 15000)
	v.SetDefault("net.portal_timeout_ms", 180000)
	v.SetDefault("net.reconnect_interval_ms", 5000)

	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.relay_pin", 17)
	v.SetDefault("gpio.indicator_pin", 27)
	v.SetDefault("gpio.flow_pin", 22)

	v.SetDefault("sensor.publish_ms", 1000)
	v.SetDefault("sensor.buffer_len", 256)
	v.SetDefault("sensor.water_in_id", "")
	v.SetDefault("sensor.water_out_id", "")
	v.SetDefault("sensor.air_iio_dir", "")

	v.SetDefault("http.addr", "")

	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.org", "cooling-tower")
	v.SetDefault("influx.bucket", "cooling_tower")
}
