package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"zonegraph/internal/domain"
)

// ZoneProbe is anything that can attempt a zone transfer
type ZoneProbe interface {
	Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error)
}

// NmapPreflight checks that a name server accepts TCP on the DNS port
// before a transfer is attempted
type NmapPreflight struct {
	port              string
	timeout           time.Duration
	skipHostDiscovery bool
	logger            zerolog.Logger
}

// NewNmapPreflight creates a preflight checker
func NewNmapPreflight(opts ...NmapOption) *NmapPreflight {
	p := &NmapPreflight{
		port:              "53",
		timeout:           5 * time.Second,
		skipHostDiscovery: true,
		logger:            zerolog.Nop(),
	}

	// Apply options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Available reports whether the nmap binary can be executed
func (p *NmapPreflight) Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}

	// Try to run a simple list scan
	_, _, err = scanner.Run()
	return err == nil
}

// PortOpen reports whether host has the configured TCP port open
func (p *NmapPreflight) PortOpen(ctx context.Context, host string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(host),
		nmap.WithPorts(p.port),
		nmap.WithConnectScan(),
	}

	// Name servers often drop ICMP
	if p.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return false, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return false, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		p.logger.Debug().Str("host", host).Strs("warnings", *warnings).Msg("nmap warnings")
	}

	return portOpen(result, p.port), nil
}

// portOpen reports whether any host in result lists port as open
func portOpen(result *nmap.Run, port string) bool {
	if result == nil {
		return false
	}
	want, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	for _, host := range result.Hosts {
		for _, p := range host.Ports {
			if int(p.ID) == want && p.State.State == "open" {
				return true
			}
		}
	}
	return false
}

// PortChecker reports whether a host accepts TCP on the DNS port
type PortChecker interface {
	PortOpen(ctx context.Context, host string) (bool, error)
}

// PreflightProbe wraps a probe and skips name servers whose DNS port is closed
type PreflightProbe struct {
	next   ZoneProbe
	check  PortChecker
	budget time.Duration
	logger zerolog.Logger
}

// NewPreflightProbe decorates next with a port check. The check and the
// transfer share one deadline: the next probe's Timeout when it has one.
func NewPreflightProbe(next ZoneProbe, check PortChecker) *PreflightProbe {
	budget := DefaultTransferTimeout
	if t, ok := next.(interface{ Timeout() time.Duration }); ok && t.Timeout() > 0 {
		budget = t.Timeout()
	}
	return &PreflightProbe{next: next, check: check, budget: budget, logger: zerolog.Nop()}
}

// WithLogger sets the logger for failed checks
func (p *PreflightProbe) WithLogger(logger zerolog.Logger) *PreflightProbe {
	p.logger = logger
	return p
}

// Probe runs the port check and, if the port is open, the wrapped probe. A
// failing check does not block the transfer attempt while time remains.
func (p *PreflightProbe) Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error) {
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	open, err := p.check.PortOpen(ctx, nameserver)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransferError{Domain: domainName, NameServer: nameserver, Err: ctx.Err()}
		}
		p.logger.Debug().Err(err).Str("nameserver", nameserver).Msg("preflight failed, probing anyway")
		return p.next.Probe(ctx, domainName, nameserver)
	}
	if !open {
		return nil, &domain.TransferError{Domain: domainName, NameServer: nameserver, Err: domain.ErrPortClosed}
	}
	return p.next.Probe(ctx, domainName, nameserver)
}

// parsePort validates a single TCP port
func parsePort(port string) (string, error) {
	port = strings.TrimSpace(port)
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port number: %s", port)
	}
	return port, nil
}
