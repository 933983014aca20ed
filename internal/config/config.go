package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon configuration.
type Config struct {
	NodeID             string
	Script             string
	BPDebounce         time.Duration
	RPDebounce         time.Duration
	ExternalInterfaces []string
	PollInterval       time.Duration
	MetricsAddr        string
	LogLevel           string
}

// Default returns the configuration defaults: one-second debounces,
// five-second interface polling, no metrics listener, info logging.
func Default() Config {
	return Config{
		BPDebounce:   time.Second,
		RPDebounce:   time.Second,
		PollInterval: 5 * time.Second,
		LogLevel:     "info",
	}
}

type fileConfig struct {
	NodeID             string   `toml:"node_id"`
	Script             string   `toml:"script"`
	BPDebounce         string   `toml:"bp_debounce"`
	RPDebounce         string   `toml:"rp_debounce"`
	ExternalInterfaces []string `toml:"external_interfaces"`
	PollInterval       string   `toml:"poll_interval"`
	MetricsAddr        string   `toml:"metrics_addr"`
	LogLevel           string   `toml:"log_level"`
}

// Load reads a TOML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("node_id") {
		cfg.NodeID = strings.TrimSpace(raw.NodeID)
	}
	if meta.IsDefined("script") {
		cfg.Script = strings.TrimSpace(raw.Script)
	}
	if meta.IsDefined("bp_debounce") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BPDebounce))
		if err != nil {
			return Config{}, fmt.Errorf("parse bp_debounce: %w", err)
		}
		cfg.BPDebounce = d
	}
	if meta.IsDefined("rp_debounce") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RPDebounce))
		if err != nil {
			return Config{}, fmt.Errorf("parse rp_debounce: %w", err)
		}
		cfg.RPDebounce = d
	}
	if meta.IsDefined("external_interfaces") {
		cfg.ExternalInterfaces = normalizeNames(raw.ExternalInterfaces)
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required fields and value ranges.
func (c Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if c.Script == "" {
		return fmt.Errorf("script is required")
	}
	if c.BPDebounce <= 0 || c.RPDebounce <= 0 {
		return fmt.Errorf("debounce intervals must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

// normalizeNames trims and drops empty interface names, keeping order.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
