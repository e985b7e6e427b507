package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"
	"github.com/openrdap/rdap/bootstrap"

	"zonegraph/internal/domain"
)

// RDAPSource looks up IP registration data over RDAP. Without configured
// servers the owning registry is found through the IANA bootstrap registry.
type RDAPSource struct {
	client  *rdap.Client
	servers []*url.URL
	timeout time.Duration
}

// NewRDAPSource creates an RDAP source. Servers are registry base URLs
// ("https://rdap.db.ripe.net/") tried in order; an empty list uses bootstrap.
func NewRDAPSource(servers []string, timeout time.Duration) (*RDAPSource, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &RDAPSource{
		client: &rdap.Client{
			HTTP:      &http.Client{Timeout: timeout},
			Bootstrap: &bootstrap.Client{},
			UserAgent: "zonegraph",
		},
		timeout: timeout,
	}
	for _, raw := range servers {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid rdap server %q", raw)
		}
		// requests resolve "ip/<addr>" against the base
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		s.servers = append(s.servers, u)
	}
	return s, nil
}

// Name returns the source identifier
func (s *RDAPSource) Name() string {
	return "rdap"
}

// Lookup queries the bootstrapped registry, or each configured server until
// one answers for ip
func (s *RDAPSource) Lookup(ctx context.Context, ip string) (domain.Registration, error) {
	if len(s.servers) == 0 {
		return s.lookup(ctx, nil, ip)
	}

	var errs []error
	for _, server := range s.servers {
		reg, err := s.lookup(ctx, server, ip)
		if err == nil {
			return reg, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", server, err))
		if ctx.Err() != nil {
			break
		}
	}
	return domain.Registration{}, errors.Join(errs...)
}

func (s *RDAPSource) lookup(ctx context.Context, server *url.URL, ip string) (domain.Registration, error) {
	req := &rdap.Request{
		Type:    rdap.IPRequest,
		Query:   ip,
		Server:  server,
		Timeout: s.timeout,
	}

	resp, err := s.client.Do(req.WithContext(ctx))
	if err != nil {
		return domain.Registration{}, err
	}
	network, ok := resp.Object.(*rdap.IPNetwork)
	if !ok {
		return domain.Registration{}, fmt.Errorf("unexpected rdap object %T", resp.Object)
	}

	reg := domain.Registration{
		IP:      ip,
		Country: network.Country,
		Company: organization(network),
		Source:  s.Name(),
	}.Normalize()
	if reg.Empty() {
		return domain.Registration{}, errors.New("no registration data")
	}
	return reg, nil
}

// organization prefers the registrant entity, then any entity, then the
// network remarks and finally the network name
func organization(n *rdap.IPNetwork) string {
	for _, e := range n.Entities {
		if hasRole(e.Roles, "registrant") {
			if name := vcardName(e.VCard); name != "" {
				return name
			}
		}
	}
	for _, e := range n.Entities {
		if name := vcardName(e.VCard); name != "" {
			return name
		}
	}
	for _, r := range n.Remarks {
		if len(r.Description) > 0 && strings.TrimSpace(r.Description[0]) != "" {
			return strings.TrimSpace(r.Description[0])
		}
	}
	return n.Name
}

// vcardName reads "fn", falling back to "org"
func vcardName(card *rdap.VCard) string {
	if card == nil {
		return ""
	}
	if name := strings.TrimSpace(card.Name()); name != "" {
		return name
	}
	if org := card.GetFirst("org"); org != nil {
		for _, v := range org.Values() {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
