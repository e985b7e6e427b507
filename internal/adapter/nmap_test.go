package adapter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"zonegraph/internal/domain"
)

// TestNmapPreflight_Creation tests preflight creation with various options
func TestNmapPreflight_Creation(t *testing.T) {
	tests := []struct {
		name        string
		opts        []NmapOption
		wantPort    string
		wantTimeout time.Duration
		wantSkip    bool
	}{
		{
			name:        "default configuration",
			wantPort:    "53",
			wantTimeout: 5 * time.Second,
			wantSkip:    true,
		},
		{
			name:        "custom port and timeout",
			opts:        []NmapOption{WithPort("5353"), WithTimeout(time.Second)},
			wantPort:    "5353",
			wantTimeout: time.Second,
			wantSkip:    true,
		},
		{
			name:        "invalid port ignored",
			opts:        []NmapOption{WithPort("70000")},
			wantPort:    "53",
			wantTimeout: 5 * time.Second,
			wantSkip:    true,
		},
		{
			name:        "host discovery enabled",
			opts:        []NmapOption{WithSkipHostDiscovery(false)},
			wantPort:    "53",
			wantTimeout: 5 * time.Second,
			wantSkip:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewNmapPreflight(tt.opts...)
			if p.port != tt.wantPort {
				t.Errorf("port = %s, want %s", p.port, tt.wantPort)
			}
			if p.timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", p.timeout, tt.wantTimeout)
			}
			if p.skipHostDiscovery != tt.wantSkip {
				t.Errorf("skipHostDiscovery = %v, want %v", p.skipHostDiscovery, tt.wantSkip)
			}
		})
	}
}

func TestPortOpen(t *testing.T) {
	run := func(id uint16, state string) *nmap.Run {
		return &nmap.Run{Hosts: []nmap.Host{{
			Ports: []nmap.Port{{ID: id, Protocol: "tcp", State: nmap.State{State: state}}},
		}}}
	}

	tests := []struct {
		name   string
		result *nmap.Run
		want   bool
	}{
		{"nil result", nil, false},
		{"no hosts", &nmap.Run{}, false},
		{"open", run(53, "open"), true},
		{"filtered", run(53, "filtered"), false},
		{"closed", run(53, "closed"), false},
		{"other port", run(80, "open"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := portOpen(tt.result, "53"); got != tt.want {
				t.Errorf("portOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"53", false},
		{" 5353 ", false},
		{"0", true},
		{"65536", true},
		{"dns", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parsePort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parsePort(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

type stubProbe struct {
	called   bool
	deadline time.Time
	timeout  time.Duration
}

func (s *stubProbe) Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error) {
	s.called = true
	s.deadline, _ = ctx.Deadline()
	if err := ctx.Err(); err != nil {
		return nil, &domain.TransferError{Domain: domainName, NameServer: nameserver, Err: err}
	}
	return &domain.Zone{Domain: domainName, NameServer: nameserver}, nil
}

func (s *stubProbe) Timeout() time.Duration { return s.timeout }

type stubChecker struct {
	open     bool
	err      error
	block    bool
	deadline time.Time
}

func (c *stubChecker) PortOpen(ctx context.Context, host string) (bool, error) {
	c.deadline, _ = ctx.Deadline()
	if c.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return c.open, c.err
}

func TestPreflightProbe(t *testing.T) {
	tests := []struct {
		name       string
		check      *stubChecker
		wantCalled bool
		wantErr    error
	}{
		{
			name:       "open port transfers",
			check:      &stubChecker{open: true},
			wantCalled: true,
		},
		{
			name:    "closed port skips the transfer",
			check:   &stubChecker{open: false},
			wantErr: domain.ErrPortClosed,
		},
		{
			name:       "failed check still transfers",
			check:      &stubChecker{err: errors.New("nmap exited 1")},
			wantCalled: true,
		},
		{
			name:    "check using the whole budget leaves no transfer",
			check:   &stubChecker{block: true},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := 100 * time.Millisecond
			next := &stubProbe{timeout: budget}
			probe := NewPreflightProbe(next, tt.check)

			start := time.Now()
			_, err := probe.Probe(context.Background(), "example.com", "192.0.2.1")
			elapsed := time.Since(start)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.called != tt.wantCalled {
				t.Errorf("transfer called = %v, want %v", next.called, tt.wantCalled)
			}
			if next.called && !next.deadline.Equal(tt.check.deadline) {
				t.Errorf("transfer deadline %v differs from check deadline %v", next.deadline, tt.check.deadline)
			}
			if tt.check.deadline.IsZero() || tt.check.deadline.Sub(start) > budget {
				t.Errorf("check deadline %v not within budget %v", tt.check.deadline, budget)
			}
			if elapsed > 2*budget {
				t.Errorf("attempt took %v, budget %v", elapsed, budget)
			}
		})
	}
}

// TestPreflightProbe_Integration requires the nmap binary and network access
func TestPreflightProbe_Integration(t *testing.T) {
	if os.Getenv("ZONEGRAPH_NMAP_TESTS") == "" {
		t.Skip("set ZONEGRAPH_NMAP_TESTS=1 to run nmap integration tests")
	}

	check := NewNmapPreflight(WithTimeout(10 * time.Second))
	if !check.Available(context.Background()) {
		t.Skip("nmap not available")
	}

	// TEST-NET-1 is unroutable, so the port is never open
	next := &stubProbe{}
	probe := NewPreflightProbe(next, check)
	_, err := probe.Probe(context.Background(), "example.com", "192.0.2.1")

	if next.called {
		t.Error("expected wrapped probe to be skipped for a closed port")
	}
	if !errors.Is(err, domain.ErrPortClosed) {
		t.Errorf("expected ErrPortClosed, got %v", err)
	}
}
