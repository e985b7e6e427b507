package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Input      string           `yaml:"input"` // domain list
	Database   DatabaseConfig   `yaml:"database"`
	Scan       ScanConfig       `yaml:"scan"`
	Dump       DumpConfig       `yaml:"dump"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Results    ResultsConfig    `yaml:"results"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScanConfig holds the pipeline settings
type ScanConfig struct {
	Concurrency     int      `yaml:"concurrency"`
	NSTimeout       Duration `yaml:"ns_timeout"`
	TransferTimeout Duration `yaml:"transfer_timeout"`
	Resolvers       []string `yaml:"resolvers,omitempty"` // empty = /etc/resolv.conf
	Port            string   `yaml:"port"`                // DNS port for transfers and preflight

	// nmap check of the transfer port before each AXFR
	Preflight              bool `yaml:"preflight"`
	PreflightSkipDiscovery bool `yaml:"preflight_skip_discovery"`
}

// DumpConfig controls writing transferred zones to disk
type DumpConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// EnrichmentConfig selects and tunes the registration backend
type EnrichmentConfig struct {
	Backend       string   `yaml:"backend"` // whois | rdap
	Timeout       Duration `yaml:"timeout"`
	RateLimit     float64  `yaml:"rate_limit"` // lookups per second, 0 = unlimited
	Burst         int      `yaml:"burst"`
	Cache         bool     `yaml:"cache"`
	Registrar     bool     `yaml:"registrar"`
	RDAPEndpoints []string `yaml:"rdap_endpoints,omitempty"`
}

// ResultsConfig controls the JSON-lines result log
type ResultsConfig struct {
	Path string `yaml:"path"` // empty = disabled
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
