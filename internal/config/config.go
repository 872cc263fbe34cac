package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Detection DetectionConfig `yaml:"detection"`
	Alerting  AlertingConfig  `yaml:"alerting"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type NetworkConfig struct {
	Parser     string `yaml:"parser"`
	ListenPort int    `yaml:"listen_port"`
}

type DetectionConfig struct {
	FastScan          FastScanConfig `yaml:"fast_scan"`
	SlowScan          SlowScanConfig `yaml:"slow_scan"`
	AlertCooldownSecs int            `yaml:"alert_cooldown_secs"`
	Cleanup           CleanupConfig  `yaml:"cleanup"`
}

type FastScanConfig struct {
	PortThreshold  int `yaml:"port_threshold"`
	TimeWindowSecs int `yaml:"time_window_secs"`
}

type SlowScanConfig struct {
	PortThreshold  int `yaml:"port_threshold"`
	TimeWindowMins int `yaml:"time_window_mins"`
}

type CleanupConfig struct {
	IntervalSecs int `yaml:"interval_secs"`
	MaxIdleMins  int `yaml:"max_idle_mins"`
}

type AlertingConfig struct {
	SIEM  SIEMConfig  `yaml:"siem"`
	Email EmailConfig `yaml:"email"`
}

type SIEMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Protocol string `yaml:"protocol"`
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates a YAML configuration file.
func Load(filename string) (*Config, error) {
	if filename == "" {
		filename = "configs/scanguard.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %v", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return &config, nil
}

// Validate backfills defaults and rejects values the rest of the daemon
// cannot work with.
func (c *Config) Validate() error {
	if c.Network.Parser == "" {
		c.Network.Parser = "gaia"
	}
	if c.Network.Parser != "gaia" && c.Network.Parser != "cef" {
		return fmt.Errorf("unknown parser %q (supported: gaia, cef)", c.Network.Parser)
	}
	if c.Network.ListenPort <= 0 {
		c.Network.ListenPort = 5514
	}

	if c.Detection.FastScan.PortThreshold <= 0 {
		c.Detection.FastScan.PortThreshold = 15
	}
	if c.Detection.FastScan.TimeWindowSecs <= 0 {
		c.Detection.FastScan.TimeWindowSecs = 10
	}
	if c.Detection.SlowScan.PortThreshold <= 0 {
		c.Detection.SlowScan.PortThreshold = 40
	}
	if c.Detection.SlowScan.TimeWindowMins <= 0 {
		c.Detection.SlowScan.TimeWindowMins = 5
	}
	if c.Detection.AlertCooldownSecs <= 0 {
		c.Detection.AlertCooldownSecs = 60
	}
	if c.Detection.Cleanup.IntervalSecs <= 0 {
		c.Detection.Cleanup.IntervalSecs = 60
	}
	if c.Detection.Cleanup.MaxIdleMins <= 0 {
		c.Detection.Cleanup.MaxIdleMins = 10
	}

	if c.Alerting.SIEM.Enabled {
		if c.Alerting.SIEM.Host == "" {
			return fmt.Errorf("siem host cannot be empty when siem is enabled")
		}
		if c.Alerting.SIEM.Port <= 0 {
			c.Alerting.SIEM.Port = 514
		}
	}
	if c.Alerting.SIEM.Protocol == "" {
		c.Alerting.SIEM.Protocol = "udp"
	}
	if c.Alerting.SIEM.Protocol != "udp" && c.Alerting.SIEM.Protocol != "tcp" {
		return fmt.Errorf("unknown siem protocol %q (supported: udp, tcp)", c.Alerting.SIEM.Protocol)
	}

	if c.Alerting.Email.Enabled {
		if c.Alerting.Email.SMTPHost == "" {
			return fmt.Errorf("email smtp_host cannot be empty when email is enabled")
		}
		if len(c.Alerting.Email.To) == 0 {
			return fmt.Errorf("email recipient list cannot be empty when email is enabled")
		}
		if c.Alerting.Email.SMTPPort <= 0 {
			c.Alerting.Email.SMTPPort = 587
		}
		if c.Alerting.Email.From == "" {
			c.Alerting.Email.From = "scanguard@localhost"
		}
	}

	if c.API.Listen == "" {
		c.API.Listen = ":8081"
	}
	if c.Metrics.Port == "" {
		c.Metrics.Port = "8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}

	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	// Validate never fails on the zero value: every field falls back.
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}
