package adapter

import (
	"time"

	"github.com/rs/zerolog"
)

// NmapOption is a functional option for configuring NmapPreflight
type NmapOption func(*NmapPreflight)

// WithTimeout sets the timeout for one port check
func WithTimeout(d time.Duration) NmapOption {
	return func(p *NmapPreflight) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPort sets the port to check
func WithPort(port string) NmapOption {
	return func(p *NmapPreflight) {
		// Validate and set port
		if validated, err := parsePort(port); err == nil {
			p.port = validated
		}
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
// Useful for networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(p *NmapPreflight) {
		p.skipHostDiscovery = skip
	}
}

// WithNmapLogger sets the logger
func WithNmapLogger(logger zerolog.Logger) NmapOption {
	return func(p *NmapPreflight) {
		p.logger = logger
	}
}
