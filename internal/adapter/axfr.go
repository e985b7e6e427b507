package adapter

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"zonegraph/internal/domain"
)

// DefaultTransferTimeout bounds a single zone transfer attempt
const DefaultTransferTimeout = 5 * time.Second

// AXFRProbe attempts unauthenticated zone transfers
type AXFRProbe struct {
	port    string
	timeout time.Duration
	dialer  *net.Dialer
}

// NewAXFRProbe creates a probe with the given per-attempt timeout
func NewAXFRProbe(timeout time.Duration) *AXFRProbe {
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &AXFRProbe{
		port:    "53",
		timeout: timeout,
		dialer:  &net.Dialer{},
	}
}

// WithPort overrides the destination port
func (p *AXFRProbe) WithPort(port string) *AXFRProbe {
	p.port = port
	return p
}

// Timeout returns the per-attempt bound
func (p *AXFRProbe) Timeout() time.Duration {
	return p.timeout
}

// Probe requests a full transfer of domainName from nameserver. It returns
// the zone only when the transfer completed with usable data; every other
// outcome is a *domain.TransferError. The timeout covers dialing and the
// complete transfer: the connection is closed when it expires.
func (p *AXFRProbe) Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fail := func(err error) (*domain.Zone, error) {
		return nil, &domain.TransferError{Domain: domainName, NameServer: nameserver, Err: err}
	}

	addr := net.JoinHostPort(nameserver, p.port)
	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	transfer := &dns.Transfer{
		Conn:         &dns.Conn{Conn: conn},
		DialTimeout:  p.timeout,
		ReadTimeout:  p.timeout,
		WriteTimeout: p.timeout,
	}

	msg := new(dns.Msg)
	msg.SetAxfr(dns.Fqdn(domainName))

	envelopes, err := transfer.In(msg, addr)
	if err != nil {
		return fail(err)
	}

	zone := &domain.Zone{Domain: domainName, NameServer: nameserver}
	var transferErr error
	for env := range envelopes {
		if env.Error != nil {
			if transferErr == nil {
				transferErr = env.Error
			}
			continue
		}
		for _, rr := range env.RR {
			zone.Records = append(zone.Records, toZoneRecord(rr))
		}
	}

	if transferErr != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(transferErr)
	}
	if !zone.Usable() {
		return fail(domain.ErrEmptyZone)
	}
	return zone, nil
}

// toZoneRecord flattens a resource record into its text fields
func toZoneRecord(rr dns.RR) domain.ZoneRecord {
	h := rr.Header()
	return domain.ZoneRecord{
		Owner: h.Name,
		TTL:   h.Ttl,
		Class: dns.Class(h.Class).String(),
		Type:  dns.Type(h.Rrtype).String(),
		Data:  strings.TrimPrefix(rr.String(), h.String()),
	}
}
