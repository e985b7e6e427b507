// Package config provides configuration management for zonegraph.
//
// Config file locations (priority order):
//  1. $ZONEGRAPH_CONFIG
//  2. ./zonegraph.yaml
//  3. $XDG_CONFIG_HOME/zonegraph/config.yaml
//  4. ~/.config/zonegraph/config.yaml
//  5. /etc/zonegraph/config.yaml
//
// Relative paths in a config file (input, database, dump dir, results) are
// resolved against the file's directory. Command-line flags override file
// values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultInput           = "domains.txt"
	DefaultDatabasePath    = "./zonegraph.db"
	DefaultPort            = "53"
	DefaultConcurrency     = 5
	DefaultNSTimeout       = 5 * time.Second
	DefaultTransferTimeout = 5 * time.Second
	DefaultDumpDir         = "./zones"
	DefaultBackend         = "whois"
	DefaultLookupTimeout   = 10 * time.Second
	DefaultRateLimit       = 5.0
	DefaultBurst           = 1
	DefaultLogLevel        = "info"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	// unset keys keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	var set Config
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(path), &set)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path. Relative file locations are
// made absolute first so the saved file points where the running config did.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	out := *c
	for _, p := range []*string{&out.Input, &out.Database.Path, &out.Dump.Dir, &out.Results.Path} {
		if *p == "" || *p == ":memory:" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = abs
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Input:    DefaultInput,
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Scan: ScanConfig{
			Concurrency:            DefaultConcurrency,
			NSTimeout:              Duration(DefaultNSTimeout),
			TransferTimeout:        Duration(DefaultTransferTimeout),
			Port:                   DefaultPort,
			PreflightSkipDiscovery: true,
		},
		Dump: DumpConfig{
			Enabled: true,
			Dir:     DefaultDumpDir,
		},
		Enrichment: EnrichmentConfig{
			Backend:   DefaultBackend,
			Timeout:   Duration(DefaultLookupTimeout),
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurst,
			Cache:     true,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Scan.Port == "" {
		c.Scan.Port = DefaultPort
	}
	if c.Scan.Concurrency < 1 {
		c.Scan.Concurrency = DefaultConcurrency
	}
	if c.Scan.NSTimeout <= 0 {
		c.Scan.NSTimeout = Duration(DefaultNSTimeout)
	}
	if c.Scan.TransferTimeout <= 0 {
		c.Scan.TransferTimeout = Duration(DefaultTransferTimeout)
	}
	if c.Dump.Dir == "" {
		c.Dump.Dir = DefaultDumpDir
	}
	c.Enrichment.Backend = strings.ToLower(strings.TrimSpace(c.Enrichment.Backend))
	if c.Enrichment.Backend == "" {
		c.Enrichment.Backend = DefaultBackend
	}
	if c.Enrichment.Timeout <= 0 {
		c.Enrichment.Timeout = Duration(DefaultLookupTimeout)
	}
	if c.Enrichment.Burst < 1 {
		c.Enrichment.Burst = DefaultBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks values that have no sensible default
func (c *Config) Validate() error {
	if c.Enrichment.RateLimit < 0 {
		return fmt.Errorf("enrichment.rate_limit must not be negative")
	}
	if n, err := strconv.Atoi(c.Scan.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("scan.port %q is not a valid port", c.Scan.Port)
	}
	for _, r := range c.Scan.Resolvers {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("scan.resolvers contains an empty entry")
		}
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Input: %s, Database: %s, Concurrency: %d\n", c.Input, c.Database.Path, c.Scan.Concurrency)
	summary += fmt.Sprintf("Timeouts: ns %s, transfer %s, lookup %s\n",
		c.Scan.NSTimeout.Duration(), c.Scan.TransferTimeout.Duration(), c.Enrichment.Timeout.Duration())
	summary += fmt.Sprintf("Enrichment: %s (%.1f/s, cache %v)", c.Enrichment.Backend, c.Enrichment.RateLimit, c.Enrichment.Cache)
	if c.Dump.Enabled {
		summary += fmt.Sprintf(", dumps: %s", c.Dump.Dir)
	}
	if c.Scan.Port != DefaultPort {
		summary += fmt.Sprintf(", port %s", c.Scan.Port)
	}
	if c.Scan.Preflight {
		summary += ", nmap preflight"
	}
	return summary
}
