package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/pkg/file"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "500ms"
// or "1s", or from plain integer nanoseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Std().String(), nil
}

// MetricFlags enables or disables sampling per metric group. Speed covers
// both read and write throughput, matching the single speed probe.
type MetricFlags struct {
	Temperature     bool `yaml:"temperature"`
	Speed           bool `yaml:"speed"`
	ErrorRate       bool `yaml:"error_rate"`
	Power           bool `yaml:"power"`
	Vibration       bool `yaml:"vibration"`
	Electromagnetic bool `yaml:"electromagnetic"`
	Capacity        bool `yaml:"capacity"`
	SectorHealth    bool `yaml:"sector_health"`
}

// Enabled reports whether sampling is on for the given metric kind.
func (f MetricFlags) Enabled(m models.MetricKind) bool {
	switch m {
	case models.MetricTemperature:
		return f.Temperature
	case models.MetricReadSpeed, models.MetricWriteSpeed:
		return f.Speed
	case models.MetricErrorRate:
		return f.ErrorRate
	case models.MetricPowerConsumption:
		return f.Power
	case models.MetricVibration:
		return f.Vibration
	case models.MetricElectromagnetic:
		return f.Electromagnetic
	case models.MetricCapacityUsage:
		return f.Capacity
	case models.MetricSectorHealth:
		return f.SectorHealth
	default:
		return false
	}
}

// Config represents the structure of the configuration file.
type Config struct {
	Monitor struct {
		UpdateInterval Duration    `yaml:"update_interval"` // Interval between sampling ticks
		WarningRatio   float64     `yaml:"warning_ratio"`   // Fraction of the nominal threshold that raises a warning
		CriticalRatio  float64     `yaml:"critical_ratio"`  // Fraction of the nominal threshold that raises a critical alert
		MaxDevices     int         `yaml:"max_devices"`     // Registry capacity
		AutoAlert      bool        `yaml:"auto_alert"`      // Forward new alerts to the notification sink
		Metrics        MetricFlags `yaml:"metrics"`         // Per-metric enable flags
	} `yaml:"monitor"`

	Log struct {
		Enabled  bool   `yaml:"enabled"`   // Append one CSV row per device per tick
		FilePath string `yaml:"file_path"` // Path to the CSV log file
	} `yaml:"log"`

	Notification struct {
		Enabled       bool   `yaml:"enabled"`        // Enable the MQTT notification sink
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		Topic         string `yaml:"topic"`          // Topic alerts are published to
		QOS           int    `yaml:"qos"`            // MQTT QoS level for alert messages
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
	} `yaml:"notification"`
}

// Default returns the configuration the monitor runs with when no file is
// given: 1 s ticks, 0.8/0.9 ratios, 16 devices, vibration and EM sampling off.
func Default() *Config {
	var cfg Config
	cfg.Monitor.UpdateInterval = Duration(time.Second)
	cfg.Monitor.WarningRatio = 0.8
	cfg.Monitor.CriticalRatio = 0.9
	cfg.Monitor.MaxDevices = 16
	cfg.Monitor.AutoAlert = true
	cfg.Monitor.Metrics = MetricFlags{
		Temperature:  true,
		Speed:        true,
		ErrorRate:    true,
		Power:        true,
		Capacity:     true,
		SectorHealth: true,
	}
	cfg.Log.FilePath = "drive_monitor.csv"
	return &cfg
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	if c.Monitor.UpdateInterval <= 0 {
		return errors.New("monitor update_interval must be positive")
	}
	if c.Monitor.WarningRatio <= 0 || c.Monitor.CriticalRatio <= 0 {
		return errors.New("threshold ratios must be positive")
	}
	if c.Monitor.WarningRatio > c.Monitor.CriticalRatio {
		return errors.New("warning_ratio must not exceed critical_ratio")
	}
	if c.Monitor.MaxDevices <= 0 {
		return errors.New("max_devices must be positive")
	}
	if c.Monitor.Metrics == (MetricFlags{}) {
		return errors.New("no metrics enabled in configuration")
	}
	if c.Notification.Enabled && c.Notification.Broker == "" {
		return errors.New("notification enabled but no broker configured")
	}
	return nil
}

// Load reads the YAML configuration from the specified file, applying
// defaults for anything the file leaves unset.
func Load(filename string, fileClient file.FileOperations) (*Config, error) {
	cfg := Default()
	if err := fileClient.ReadYamlFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
