// Package config provides YAML-based configuration loading for the cascade engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "2m" or "90s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level engine configuration, loaded from config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Cascade CascadeConfig `yaml:"cascade"`
	Accept  AcceptConfig  `yaml:"accept"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DBConfig holds connection settings for the MySQL server. User and
// Password identify the engine's own service account; the engine never
// connects with an end-user credential.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// CascadeConfig holds the escalation policy knobs.
type CascadeConfig struct {
	MaxRounds   int      `yaml:"max_rounds"`
	OfferWindow Duration `yaml:"offer_window"`
	WaveWindow  Duration `yaml:"wave_window"`
	WaveSize    int      `yaml:"wave_size"`
	LeadCost    int      `yaml:"lead_cost"`
}

// AcceptConfig holds accept-link token settings.
type AcceptConfig struct {
	BaseURL     string   `yaml:"base_url"`
	TokenSecret string   `yaml:"token_secret"`
	TokenSkew   Duration `yaml:"token_skew"`
}

// SweepConfig holds the expiry sweep schedule (5-field cron expression).
type SweepConfig struct {
	Cron string `yaml:"cron"`
}

// AlertsConfig controls best-effort operator alerting.
type AlertsConfig struct {
	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`
	Command      string `yaml:"command"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "plombier"
	}
	if c.DB.User == "" {
		c.DB.User = "cascade_engine"
	}
	if c.Cascade.MaxRounds == 0 {
		c.Cascade.MaxRounds = 4
	}
	if c.Cascade.OfferWindow == 0 {
		c.Cascade.OfferWindow = Duration(2 * time.Minute)
	}
	if c.Cascade.WaveWindow == 0 {
		c.Cascade.WaveWindow = Duration(5 * time.Minute)
	}
	if c.Cascade.WaveSize == 0 {
		c.Cascade.WaveSize = 3
	}
	if c.Cascade.LeadCost == 0 {
		c.Cascade.LeadCost = 1
	}
	if c.Accept.TokenSkew == 0 {
		c.Accept.TokenSkew = Duration(5 * time.Minute)
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "*/2 * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Accept.TokenSecret == "" {
		errs = append(errs, "accept.token_secret is required")
	}
	if c.Accept.BaseURL == "" {
		errs = append(errs, "accept.base_url is required")
	}
	if c.Cascade.MaxRounds < 1 {
		errs = append(errs, "cascade.max_rounds must be >= 1")
	}
	if c.Cascade.WaveSize < 1 {
		errs = append(errs, "cascade.wave_size must be >= 1")
	}
	if c.Cascade.LeadCost < 1 {
		errs = append(errs, "cascade.lead_cost must be >= 1")
	}
	if c.Cascade.OfferWindow.Std() <= 0 {
		errs = append(errs, "cascade.offer_window must be positive")
	}
	if c.Cascade.WaveWindow.Std() <= 0 {
		errs = append(errs, "cascade.wave_window must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}
