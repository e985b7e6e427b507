package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"zonegraph/internal/domain"
)

// DefaultNSTimeout bounds a single NS resolution
const DefaultNSTimeout = 5 * time.Second

// NSResolver resolves the authoritative name servers of a domain
type NSResolver struct {
	servers []string // host:port
	timeout time.Duration
	client  *dns.Client
}

// NewNSResolver creates a resolver querying the given servers. An empty list
// uses the system resolvers from /etc/resolv.conf.
func NewNSResolver(servers []string, timeout time.Duration) (*NSResolver, error) {
	if timeout <= 0 {
		timeout = DefaultNSTimeout
	}

	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("read system resolvers: %w", err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		return nil, errors.New("no resolvers configured")
	}

	return &NSResolver{
		servers: normalized,
		timeout: timeout,
		client:  &dns.Client{Timeout: timeout},
	}, nil
}

// Servers returns the resolver addresses in query order
func (r *NSResolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// LookupNS returns the NS targets for domainName exactly as published,
// including the trailing root dot. The whole lookup is bounded by the
// resolver timeout.
func (r *NSResolver) LookupNS(ctx context.Context, domainName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domainName), dns.TypeNS)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, err := r.exchange(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			// Authoritative answer, other resolvers will agree
			return nil, &domain.ResolutionError{Host: domainName, Err: errors.New("NXDOMAIN")}
		default:
			lastErr = fmt.Errorf("rcode %s from %s", dns.RcodeToString[resp.Rcode], server)
			continue
		}

		var names []string
		for _, ans := range resp.Answer {
			if ns, ok := ans.(*dns.NS); ok {
				names = append(names, ns.Ns)
			}
		}
		if len(names) == 0 {
			return nil, &domain.ResolutionError{Host: domainName, Err: domain.ErrNoNameServers}
		}
		return names, nil
	}

	if lastErr == nil {
		lastErr = domain.ErrNoNameServers
	}
	return nil, &domain.ResolutionError{Host: domainName, Err: lastErr}
}

// exchange sends the query over UDP and retries over TCP when truncated
func (r *NSResolver) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	resp, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if !resp.Truncated {
		return resp, nil
	}

	tcp := &dns.Client{Net: "tcp", Timeout: r.timeout}
	resp, _, err = tcp.ExchangeContext(ctx, msg, server)
	return resp, err
}
