package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zonegraph/internal/domain"
)

// DefaultConcurrency is the worker count used when none is given
const DefaultConcurrency = 5

// NameServerResolver returns the published NS targets of a domain
type NameServerResolver interface {
	LookupNS(ctx context.Context, domainName string) ([]string, error)
}

// TransferProbe attempts a zone transfer from one name server
type TransferProbe interface {
	Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error)
}

// HostEnricher returns the registration data of the network hosting a host
type HostEnricher interface {
	Resolve(ctx context.Context, host string) (domain.Registration, error)
}

// ZoneDumper persists transferred zones
type ZoneDumper interface {
	Exists(domainName, nameserver string) bool
	Write(zone *domain.Zone) (string, error)
}

// RegistrarResolver returns the registrar of a domain
type RegistrarResolver interface {
	Registrar(ctx context.Context, domainName string) (string, error)
}

// Scanner runs the per-domain pipeline over a bounded pool of workers
type Scanner struct {
	builder   *GraphBuilder
	resolver  NameServerResolver
	probe     TransferProbe
	enricher  HostEnricher
	dumper    ZoneDumper
	registrar RegistrarResolver
	events    *EventBus
	logger    zerolog.Logger
}

// ScannerOption is a functional option for configuring Scanner
type ScannerOption func(*Scanner)

// WithZoneDumper writes successful transfers with d
func WithZoneDumper(d ZoneDumper) ScannerOption {
	return func(s *Scanner) {
		s.dumper = d
	}
}

// WithRegistrar records the registrar of each new Server node
func WithRegistrar(r RegistrarResolver) ScannerOption {
	return func(s *Scanner) {
		s.registrar = r
	}
}

// WithEventBus publishes scan events on bus
func WithEventBus(bus *EventBus) ScannerOption {
	return func(s *Scanner) {
		s.events = bus
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a scanner
func NewScanner(builder *GraphBuilder, resolver NameServerResolver, probe TransferProbe, enricher HostEnricher, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		builder:  builder,
		resolver: resolver,
		probe:    probe,
		enricher: enricher,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSummary aggregates the outcome of a run
type RunSummary struct {
	Total           int                    `json:"total"`
	Scanned         int                    `json:"scanned"`
	Skipped         int                    `json:"skipped"`
	Failed          int                    `json:"failed"`
	Vulnerable      int                    `json:"vulnerable"`
	VulnerablePairs int                    `json:"vulnerable_pairs"`
	Results         []*domain.DomainResult `json:"results"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
}

// Duration returns the wall time of the run
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RunSummary) add(r *domain.DomainResult) {
	switch r.Status {
	case domain.StatusScanned:
		s.Scanned++
	case domain.StatusSkipped:
		s.Skipped++
	case domain.StatusFailed:
		s.Failed++
	}
	if r.Vulnerable() {
		s.Vulnerable++
		s.VulnerablePairs += len(r.VulnerableNameServers())
	}
}

type scanJob struct {
	index  int
	domain string
}

// Run scans every domain with concurrency workers and returns once all of
// them are done. A failure in one domain never affects another, and Run
// itself never fails.
func (s *Scanner) Run(ctx context.Context, domains []string, concurrency int) *RunSummary {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	summary := &RunSummary{
		Total:     len(domains),
		Results:   make([]*domain.DomainResult, len(domains)),
		StartedAt: time.Now().UTC(),
	}

	jobs := make(chan scanJob)
	var wg sync.WaitGroup

	s.logger.Info().Int("domains", len(domains)).Int("workers", concurrency).Msg("scan started")

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				// each worker writes a distinct index
				summary.Results[job.index] = s.scanDomain(ctx, job.domain)
			}
		}()
	}

	for i, d := range domains {
		jobs <- scanJob{index: i, domain: d}
	}
	close(jobs)
	wg.Wait()

	for _, r := range summary.Results {
		summary.add(r)
	}
	summary.FinishedAt = time.Now().UTC()

	s.logger.Info().
		Int("scanned", summary.Scanned).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("vulnerable", summary.Vulnerable).
		Dur("elapsed", summary.Duration()).
		Msg("scan finished")

	return summary
}

// scanDomain runs the pipeline for one input line and always returns a
// finished result record
func (s *Scanner) scanDomain(ctx context.Context, raw string) (result *domain.DomainResult) {
	name := domain.NormalizeHost(raw)
	result = domain.NewDomainResult(name)
	log := s.logger.With().Str("domain", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("domain pipeline panicked")
			result.Fail(name, fmt.Errorf("panic: %v", r))
		}
		result.Finish()
		s.publish(Event{Type: EventDomainFinished, Domain: name, Payload: result})
	}()

	if name == "" {
		result.Skip("empty")
		return result
	}

	known, err := s.builder.DomainKnown(ctx, name)
	if err != nil {
		log.Warn().Err(err).Msg("existence check failed")
		result.Fail(name, err)
		return result
	}
	if known {
		result.Skip("exists")
		s.publish(Event{Type: EventDomainSkipped, Domain: name})
		return result
	}

	s.publish(Event{Type: EventDomainStarted, Domain: name})

	records, err := s.resolver.LookupNS(ctx, name)
	if err != nil {
		log.Debug().Err(err).Msg("ns resolution failed")
		result.Fail(name, err)
		return result
	}

	nameservers := NormalizeNameServers(records)
	if len(nameservers) == 0 {
		result.Fail(name, &domain.ResolutionError{Host: name, Err: domain.ErrNoNameServers})
		return result
	}

	serverProps := s.serverProps(ctx, name, result)
	domainEnriched := false

	for _, ns := range nameservers {
		nsResult := domain.NameServerResult{Name: ns}

		if err := s.builder.LinkNameServer(ctx, name, ns, serverProps); err != nil {
			log.Warn().Err(err).Str("nameserver", ns).Msg("failed to link name server")
			nsResult.Errors = append(nsResult.Errors, domain.NewErrorRecord(ns, err))
			result.NameServers = append(result.NameServers, nsResult)
			continue
		}
		s.publish(Event{Type: EventNameServerLinked, Domain: name, NameServer: ns})

		if !domainEnriched {
			domainEnriched = true
			if err := s.enrich(ctx, domain.LabelServer, name); err != nil {
				log.Debug().Err(err).Msg("domain enrichment failed")
				result.AddError(name, err)
			}
		}
		if err := s.enrich(ctx, domain.LabelDnsServer, ns); err != nil {
			log.Debug().Err(err).Str("nameserver", ns).Msg("name server enrichment failed")
			nsResult.Errors = append(nsResult.Errors, domain.NewErrorRecord(ns, err))
		}

		s.transfer(ctx, name, ns, &nsResult, log)
		result.NameServers = append(result.NameServers, nsResult)
	}

	return result
}

// transfer attempts the zone transfer for one pair and records the outcome
func (s *Scanner) transfer(ctx context.Context, name, ns string, nsResult *domain.NameServerResult, log zerolog.Logger) {
	if s.dumper != nil && s.dumper.Exists(name, ns) {
		nsResult.Note = "already dumped"
		return
	}

	zone, err := s.probe.Probe(ctx, name, ns)
	if err != nil {
		log.Debug().Err(err).Str("nameserver", ns).Msg("not vulnerable")
		nsResult.Errors = append(nsResult.Errors, domain.NewErrorRecord(ns, err))
		return
	}

	nsResult.Vulnerable = true
	nsResult.Records = zone.Len()
	log.Info().Str("nameserver", ns).Int("records", zone.Len()).Msg("zone transfer allowed")

	if err := s.builder.MarkVulnerable(ctx, name); err != nil {
		log.Warn().Err(err).Msg("failed to mark vulnerable")
		nsResult.Errors = append(nsResult.Errors, domain.NewErrorRecord(name, err))
	}
	s.publish(Event{Type: EventVulnerable, Domain: name, NameServer: ns, Payload: zone.Len()})

	if s.dumper != nil {
		path, err := s.dumper.Write(zone)
		if err != nil {
			log.Warn().Err(err).Str("nameserver", ns).Msg("failed to write zone dump")
			nsResult.Errors = append(nsResult.Errors, domain.NewErrorRecord(ns, err))
			return
		}
		nsResult.ZoneFile = path
	}
}

// enrich resolves host's registration data and links it into the graph
func (s *Scanner) enrich(ctx context.Context, label domain.Label, host string) error {
	reg, err := s.enricher.Resolve(ctx, host)
	if err != nil {
		return err
	}
	return s.builder.LinkHosting(ctx, label, host, reg)
}

// serverProps looks up the properties stored on a new Server node
func (s *Scanner) serverProps(ctx context.Context, name string, result *domain.DomainResult) map[string]any {
	if s.registrar == nil {
		return nil
	}
	registrar, err := s.registrar.Registrar(ctx, name)
	if err != nil {
		s.logger.Debug().Err(err).Str("domain", name).Msg("registrar lookup failed")
		return nil
	}
	result.Registrar = registrar
	return map[string]any{domain.PropRegistrar: registrar}
}

func (s *Scanner) publish(event Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

// NormalizeNameServers strips the root dot from NS targets, lower-cases
// them and drops empty and duplicate names, keeping the published order
func NormalizeNameServers(records []string) []string {
	seen := make(map[string]bool, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		ns := domain.NormalizeHost(r)
		if ns == "" || seen[ns] {
			continue
		}
		seen[ns] = true
		out = append(out, ns)
	}
	return out
}
