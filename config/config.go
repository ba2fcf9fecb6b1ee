// Package config loads the bot configuration: a YAML file for the
// session table and runtime knobs, and environment variables (optionally
// via a .env file) for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/platinum/session"
)

// Duration wraps time.Duration so YAML can carry "45s" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete bot configuration.
type Config struct {
	Symbol   string `yaml:"symbol"`
	Quantity int    `yaml:"quantity"`
	Timezone string `yaml:"timezone"`

	EntryFillTimeout  Duration `yaml:"entry_fill_timeout"`
	RangeFetchTimeout Duration `yaml:"range_fetch_timeout"`
	MaxIdle           Duration `yaml:"max_idle"`

	StatePath   string `yaml:"state_path"`
	JournalPath string `yaml:"journal_path"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	Sessions []session.Config `yaml:"sessions"`
}

// Default returns a configuration with sensible defaults: one London
// session on the micro S&P contract.
func Default() *Config {
	return &Config{
		Symbol:            "/MES",
		Quantity:          1,
		Timezone:          "America/Los_Angeles",
		EntryFillTimeout:  Duration(60 * time.Second),
		RangeFetchTimeout: Duration(30 * time.Second),
		MaxIdle:           Duration(5 * time.Minute),
		StatePath:         "bot_state.json",
		JournalPath:       "trades.db",
		LogLevel:          "info",
		Sessions: []session.Config{
			{
				ID:              "london",
				Name:            "London",
				ReferenceHour:   22,
				WindowStartHour: 23,
				WindowEndHour:   23,
				TargetPoints:    0.2,
				StopPoints:      0.5,
			},
		},
	}
}

// LoadFromFile loads and validates a YAML configuration.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Quantity == 0 {
		c.Quantity = def.Quantity
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.EntryFillTimeout == 0 {
		c.EntryFillTimeout = def.EntryFillTimeout
	}
	if c.RangeFetchTimeout == 0 {
		c.RangeFetchTimeout = def.RangeFetchTimeout
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = def.MaxIdle
	}
	if c.StatePath == "" {
		c.StatePath = def.StatePath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	for i := range c.Sessions {
		c.Sessions[i].ApplyDefaults()
	}
}

// Validate checks the configuration, including the session table
// (overlapping sessions are a startup validation error).
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	if c.EntryFillTimeout <= 0 || c.RangeFetchTimeout <= 0 || c.MaxIdle <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	return session.Validate(c.Sessions)
}
