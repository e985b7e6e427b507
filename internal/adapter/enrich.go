package adapter

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"zonegraph/internal/domain"
)

// Enricher resolves a host name to its IPv4 address and the registration
// data of the network that address belongs to
type Enricher struct {
	source        RegistrationSource
	resolver      HostResolver
	limiter       *rate.Limiter
	lookupTimeout time.Duration
	logger        zerolog.Logger

	cacheEnabled bool
	mu           sync.Mutex
	cache        map[string]domain.Registration
	group        singleflight.Group
}

// EnricherOption is a functional option for configuring Enricher
type EnricherOption func(*Enricher)

// WithHostResolver replaces the system resolver
func WithHostResolver(r HostResolver) EnricherOption {
	return func(e *Enricher) {
		e.resolver = r
	}
}

// WithRateLimit limits registry queries to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) EnricherOption {
	return func(e *Enricher) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCache enables or disables the per-IP registration cache
func WithCache(enabled bool) EnricherOption {
	return func(e *Enricher) {
		e.cacheEnabled = enabled
	}
}

// WithLookupTimeout bounds address resolution and each registry query
func WithLookupTimeout(d time.Duration) EnricherOption {
	return func(e *Enricher) {
		e.lookupTimeout = d
	}
}

// WithEnricherLogger sets the logger
func WithEnricherLogger(logger zerolog.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher creates an enricher backed by source
func NewEnricher(source RegistrationSource, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		source:        source,
		resolver:      net.DefaultResolver,
		lookupTimeout: 10 * time.Second,
		logger:        zerolog.Nop(),
		cacheEnabled:  true,
		cache:         make(map[string]domain.Registration),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the registration data for host. Any failure is a
// *domain.LookupError; an unresolvable host wraps a *domain.ResolutionError.
func (e *Enricher) Resolve(ctx context.Context, host string) (domain.Registration, error) {
	ip, err := e.resolveIPv4(ctx, host)
	if err != nil {
		return domain.Registration{}, &domain.LookupError{
			Target: host,
			Err:    &domain.ResolutionError{Host: host, Err: err},
		}
	}

	reg, err := e.lookup(ctx, ip)
	if err != nil {
		return domain.Registration{}, &domain.LookupError{Target: host, Err: err}
	}
	return reg, nil
}

// resolveIPv4 returns the first IPv4 address of host
func (e *Enricher) resolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return "", errors.New("not an IPv4 address")
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	ips, err := e.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", errors.New("no IPv4 address")
}

// lookup queries the registry for ip, collapsing concurrent queries for the
// same address and caching successful answers
func (e *Enricher) lookup(ctx context.Context, ip string) (domain.Registration, error) {
	if e.cacheEnabled {
		e.mu.Lock()
		reg, ok := e.cache[ip]
		e.mu.Unlock()
		if ok {
			return reg, nil
		}
	}

	v, err, shared := e.group.Do(ip, func() (interface{}, error) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return domain.Registration{}, err
			}
		}

		qctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()

		reg, err := e.source.Lookup(qctx, ip)
		if err != nil {
			return domain.Registration{}, err
		}
		if e.cacheEnabled {
			e.mu.Lock()
			e.cache[ip] = reg
			e.mu.Unlock()
		}
		return reg, nil
	})
	if shared {
		e.logger.Debug().Str("ip", ip).Msg("registration lookup shared")
	}
	if err != nil {
		return domain.Registration{}, err
	}
	return v.(domain.Registration), nil
}

// CacheSize returns the number of cached registrations
func (e *Enricher) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
