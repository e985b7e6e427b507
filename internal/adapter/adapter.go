package adapter

import (
	"context"
	"net"

	"zonegraph/internal/domain"
)

// RegistrationSource queries IP registration data from a registry
type RegistrationSource interface {
	// Name returns the unique identifier for this source
	Name() string

	// Lookup returns the registration data of the network containing ip
	Lookup(ctx context.Context, ip string) (domain.Registration, error)
}

// HostResolver resolves host names to addresses. *net.Resolver implements it.
type HostResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

var _ HostResolver = (*net.Resolver)(nil)
