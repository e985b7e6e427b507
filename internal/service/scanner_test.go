package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"zonegraph/internal/domain"
	"zonegraph/internal/repository/memory"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeResolver struct {
	calls atomic.Int32
	ns    map[string][]string
}

func (f *fakeResolver) LookupNS(ctx context.Context, domainName string) ([]string, error) {
	f.calls.Add(1)
	names, ok := f.ns[domainName]
	if !ok {
		return nil, &domain.ResolutionError{Host: domainName, Err: errors.New("NXDOMAIN")}
	}
	return names, nil
}

type fakeProbe struct {
	mu         sync.Mutex
	calls      []string
	vulnerable map[string]bool // "domain@ns"
	panicOn    string
}

func (f *fakeProbe) Probe(ctx context.Context, domainName, nameserver string) (*domain.Zone, error) {
	key := domainName + "@" + nameserver
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if key == f.panicOn {
		panic("probe exploded")
	}
	if !f.vulnerable[key] {
		return nil, &domain.TransferError{Domain: domainName, NameServer: nameserver, Err: errors.New("REFUSED")}
	}
	return &domain.Zone{
		Domain:     domainName,
		NameServer: nameserver,
		Records: []domain.ZoneRecord{
			{Owner: domainName + ".", TTL: 3600, Class: "IN", Type: "SOA", Data: "ns. admin. 1 2 3 4 5"},
			{Owner: "www." + domainName + ".", TTL: 300, Class: "IN", Type: "A", Data: "192.0.2.1"},
			{Owner: domainName + ".", TTL: 3600, Class: "IN", Type: "SOA", Data: "ns. admin. 1 2 3 4 5"},
		},
	}, nil
}

func (f *fakeProbe) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEnricher struct {
	regs map[string]domain.Registration
}

func (f *fakeEnricher) Resolve(ctx context.Context, host string) (domain.Registration, error) {
	reg, ok := f.regs[host]
	if !ok {
		return domain.Registration{}, &domain.LookupError{Target: host, Err: &domain.ResolutionError{Host: host, Err: errors.New("no such host")}}
	}
	return reg, nil
}

type fakeDumper struct {
	mu       sync.Mutex
	existing map[string]bool
	written  []string
}

func (f *fakeDumper) Exists(domainName, nameserver string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[domainName+"#"+nameserver]
}

func (f *fakeDumper) Write(zone *domain.Zone) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("zones/%s#%s.zone", zone.Domain, zone.NameServer)
	f.written = append(f.written, path)
	return path, nil
}

type fakeRegistrar struct{}

func (fakeRegistrar) Registrar(ctx context.Context, domainName string) (string, error) {
	if domainName == "example.com" {
		return "Example Registrar, Inc.", nil
	}
	return "", errors.New("not found")
}

// ============================================================================
// Test Helpers
// ============================================================================

type testEnv struct {
	store    *memory.Repository
	builder  *GraphBuilder
	resolver *fakeResolver
	probe    *fakeProbe
	enricher *fakeEnricher
}

func newTestEnv() *testEnv {
	store := memory.New()
	return &testEnv{
		store:   store,
		builder: NewGraphBuilder(store),
		resolver: &fakeResolver{ns: map[string][]string{
			"example.com": {"ns1.example.com.", "ns2.example.com."},
			"example.org": {"ns1.example.com.", "ns3.example.net."},
		}},
		probe: &fakeProbe{vulnerable: map[string]bool{
			"example.com@ns1.example.com": true,
		}},
		enricher: &fakeEnricher{regs: map[string]domain.Registration{
			"example.com":     {Country: "US", Company: "Example Corp"},
			"ns1.example.com": {Country: "US", Company: "Example Corp"},
			"ns2.example.com": {Country: "DE", Company: "Other GmbH"},
		}},
	}
}

func (e *testEnv) scanner(opts ...ScannerOption) *Scanner {
	return NewScanner(e.builder, e.resolver, e.probe, e.enricher, opts...)
}

func (e *testEnv) counts(t *testing.T) (map[domain.Label]int, map[domain.RelType]int) {
	t.Helper()
	frag, err := e.store.ExportFragment(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return frag.CountByLabel(), frag.CountByType()
}

func (e *testEnv) hasEdge(t *testing.T, fromLabel domain.Label, from string, rel domain.RelType, toLabel domain.Label, to string) bool {
	t.Helper()
	ctx := context.Background()
	start, _ := e.store.FindNode(ctx, fromLabel, domain.PropName, from)
	end, _ := e.store.FindNode(ctx, toLabel, domain.PropName, to)
	if start == nil || end == nil {
		return false
	}
	ok, err := e.store.FindRelationship(ctx, start, end, rel)
	if err != nil {
		t.Fatalf("find relationship: %v", err)
	}
	return ok
}

// ============================================================================
// Scanner Tests
// ============================================================================

func TestScannerEndToEnd(t *testing.T) {
	env := newTestEnv()
	summary := env.scanner().Run(context.Background(), []string{"example.com"}, 2)

	if summary.Total != 1 || summary.Scanned != 1 || summary.Vulnerable != 1 || summary.VulnerablePairs != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	labels, rels := env.counts(t)
	wantLabels := map[domain.Label]int{
		domain.LabelServer:     1,
		domain.LabelDnsServer:  2,
		domain.LabelCompany:    2,
		domain.LabelCountry:    2,
		domain.LabelVulnerabilityMarker: 1,
	}
	for label, want := range wantLabels {
		if labels[label] != want {
			t.Errorf("expected %d %s nodes, got %d", want, label, labels[label])
		}
	}
	wantRels := map[domain.RelType]int{
		domain.RelKnows:      2,
		domain.RelHostedBy:   3,
		domain.RelFrom:       2,
		domain.RelVulnerable: 1,
	}
	for rel, want := range wantRels {
		if rels[rel] != want {
			t.Errorf("expected %d %s edges, got %d", want, rel, rels[rel])
		}
	}

	checks := []struct {
		fromLabel domain.Label
		from      string
		rel       domain.RelType
		toLabel   domain.Label
		to        string
	}{
		{domain.LabelDnsServer, "ns1.example.com", domain.RelKnows, domain.LabelServer, "example.com"},
		{domain.LabelDnsServer, "ns2.example.com", domain.RelKnows, domain.LabelServer, "example.com"},
		{domain.LabelServer, "example.com", domain.RelHostedBy, domain.LabelCompany, "Example Corp"},
		{domain.LabelDnsServer, "ns2.example.com", domain.RelHostedBy, domain.LabelCompany, "Other GmbH"},
		{domain.LabelCompany, "Other GmbH", domain.RelFrom, domain.LabelCountry, "DE"},
		{domain.LabelServer, "example.com", domain.RelVulnerable, domain.LabelVulnerabilityMarker, domain.VulnerableMarkerName},
	}
	for _, c := range checks {
		if !env.hasEdge(t, c.fromLabel, c.from, c.rel, c.toLabel, c.to) {
			t.Errorf("missing edge (%s %s)-[:%s]->(%s %s)", c.fromLabel, c.from, c.rel, c.toLabel, c.to)
		}
	}

	result := summary.Results[0]
	if len(result.NameServers) != 2 {
		t.Fatalf("expected 2 name server results, got %d", len(result.NameServers))
	}
	if !result.NameServers[0].Vulnerable || result.NameServers[0].Records != 3 {
		t.Errorf("unexpected ns1 result: %+v", result.NameServers[0])
	}
	if result.NameServers[1].Vulnerable {
		t.Error("expected ns2 to be not vulnerable")
	}
	if len(result.NameServers[1].Errors) != 1 || result.NameServers[1].Errors[0].Kind != domain.KindTransfer {
		t.Errorf("expected a transfer error record for ns2, got %+v", result.NameServers[1].Errors)
	}
}

func TestScannerIdempotentRerun(t *testing.T) {
	env := newTestEnv()
	s := env.scanner()
	domains := []string{"example.com", "example.org"}

	s.Run(context.Background(), domains, 2)
	labels1, rels1 := env.counts(t)
	probes := env.probe.callCount()

	summary := s.Run(context.Background(), domains, 2)
	labels2, rels2 := env.counts(t)

	if summary.Skipped != 2 {
		t.Errorf("expected both domains skipped on rerun, got %+v", summary)
	}
	if env.probe.callCount() != probes {
		t.Error("expected no transfer attempts on rerun")
	}
	for label, n := range labels1 {
		if labels2[label] != n {
			t.Errorf("%s nodes changed from %d to %d", label, n, labels2[label])
		}
	}
	for rel, n := range rels1 {
		if rels2[rel] != n {
			t.Errorf("%s edges changed from %d to %d", rel, n, rels2[rel])
		}
	}
}

func TestScannerSkipsKnownDomain(t *testing.T) {
	env := newTestEnv()
	if _, err := env.builder.EnsureNode(context.Background(), domain.LabelServer, "example.com"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary := env.scanner().Run(context.Background(), []string{"example.com"}, 1)

	if env.resolver.calls.Load() != 0 {
		t.Error("expected no NS resolution for a known domain")
	}
	r := summary.Results[0]
	if r.Status != domain.StatusSkipped || r.Reason != "exists" {
		t.Errorf("expected skipped/exists, got %s/%s", r.Status, r.Reason)
	}
}

func TestScannerNormalizesInput(t *testing.T) {
	env := newTestEnv()
	env.resolver.ns["example.com"] = []string{"NS1.example.com.", ".", "", "ns1.example.com"}

	summary := env.scanner().Run(context.Background(), []string{"  Example.COM.\n", "", "   "}, 1)

	if summary.Scanned != 1 || summary.Skipped != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	labels, rels := env.counts(t)
	if labels[domain.LabelDnsServer] != 1 {
		t.Errorf("expected 1 DnsServer node, got %d", labels[domain.LabelDnsServer])
	}
	if rels[domain.RelKnows] != 1 {
		t.Errorf("expected 1 KNOWS edge, got %d", rels[domain.RelKnows])
	}
	if got := env.probe.callCount(); got != 1 {
		t.Errorf("expected 1 transfer attempt, got %d", got)
	}
}

func TestScannerFailureIsolation(t *testing.T) {
	t.Run("resolution failure abandons only that domain", func(t *testing.T) {
		env := newTestEnv()
		summary := env.scanner().Run(context.Background(), []string{"missing.test", "example.com"}, 1)

		bad, good := summary.Results[0], summary.Results[1]
		if bad.Status != domain.StatusFailed || len(bad.Errors) != 1 || bad.Errors[0].Kind != domain.KindResolution {
			t.Errorf("unexpected failed result: %+v", bad)
		}
		if good.Status != domain.StatusScanned || !good.Vulnerable() {
			t.Errorf("unexpected good result: %+v", good)
		}

		// abandoned domains create nothing
		node, _ := env.store.FindNode(context.Background(), domain.LabelServer, domain.PropName, "missing.test")
		if node != nil {
			t.Error("expected no Server node for an unresolvable domain")
		}
	})

	t.Run("panic is recovered per domain", func(t *testing.T) {
		env := newTestEnv()
		env.probe.panicOn = "example.org@ns1.example.com"

		summary := env.scanner().Run(context.Background(), []string{"example.org", "example.com"}, 2)

		if summary.Results[0].Status != domain.StatusFailed {
			t.Errorf("expected panicking domain to fail, got %s", summary.Results[0].Status)
		}
		if summary.Results[1].Status != domain.StatusScanned {
			t.Errorf("expected other domain to be scanned, got %s", summary.Results[1].Status)
		}
	})

	t.Run("enrichment failure keeps the transfer attempt", func(t *testing.T) {
		env := newTestEnv()
		summary := env.scanner().Run(context.Background(), []string{"example.org"}, 1)

		r := summary.Results[0]
		if r.Status != domain.StatusScanned {
			t.Fatalf("expected scanned, got %s", r.Status)
		}
		if len(r.Errors) != 1 || r.Errors[0].Kind != domain.KindLookup {
			t.Errorf("expected a lookup error for the domain, got %+v", r.Errors)
		}
		if got := env.probe.callCount(); got != 2 {
			t.Errorf("expected 2 transfer attempts, got %d", got)
		}
		if env.hasEdge(t, domain.LabelServer, "example.org", domain.RelHostedBy, domain.LabelCompany, "Example Corp") {
			t.Error("did not expect hosting edges for an unenriched domain")
		}
	})
}

func TestScannerVulnerabilitySignal(t *testing.T) {
	env := newTestEnv()
	summary := env.scanner().Run(context.Background(), []string{"example.org"}, 1)

	if summary.Vulnerable != 0 {
		t.Errorf("expected no vulnerable domains, got %d", summary.Vulnerable)
	}
	labels, rels := env.counts(t)
	if labels[domain.LabelVulnerabilityMarker] != 0 || rels[domain.RelVulnerable] != 0 {
		t.Error("expected no vulnerability marker without a successful transfer")
	}
}

func TestScannerConcurrentSharedEntities(t *testing.T) {
	env := newTestEnv()
	var domains []string
	for i := 0; i < 50; i++ {
		d := fmt.Sprintf("site%02d.example", i)
		domains = append(domains, d)
		env.resolver.ns[d] = []string{"ns1.example.com."}
		env.probe.vulnerable[d+"@ns1.example.com"] = true
		env.enricher.regs[d] = domain.Registration{Country: "US", Company: "Example Corp"}
	}

	summary := env.scanner().Run(context.Background(), domains, 10)

	if summary.Vulnerable != 50 {
		t.Errorf("expected 50 vulnerable domains, got %d", summary.Vulnerable)
	}
	labels, rels := env.counts(t)
	if labels[domain.LabelDnsServer] != 1 || labels[domain.LabelCompany] != 1 || labels[domain.LabelCountry] != 1 || labels[domain.LabelVulnerabilityMarker] != 1 {
		t.Errorf("expected shared entities to exist once, got %v", labels)
	}
	if rels[domain.RelFrom] != 1 {
		t.Errorf("expected 1 FROM edge, got %d", rels[domain.RelFrom])
	}
	if rels[domain.RelVulnerable] != 50 || rels[domain.RelKnows] != 50 {
		t.Errorf("unexpected edge counts: %v", rels)
	}
}

func TestScannerZoneDumps(t *testing.T) {
	t.Run("successful transfers are written", func(t *testing.T) {
		env := newTestEnv()
		dumper := &fakeDumper{}
		summary := env.scanner(WithZoneDumper(dumper)).Run(context.Background(), []string{"example.com"}, 1)

		if len(dumper.written) != 1 || dumper.written[0] != "zones/example.com#ns1.example.com.zone" {
			t.Errorf("unexpected dumps: %v", dumper.written)
		}
		if summary.Results[0].NameServers[0].ZoneFile == "" {
			t.Error("expected zone file in result")
		}
	})

	t.Run("existing dump skips the transfer", func(t *testing.T) {
		env := newTestEnv()
		dumper := &fakeDumper{existing: map[string]bool{"example.com#ns1.example.com": true}}
		summary := env.scanner(WithZoneDumper(dumper)).Run(context.Background(), []string{"example.com"}, 1)

		if got := env.probe.callCount(); got != 1 {
			t.Errorf("expected only ns2 to be probed, got %d attempts", got)
		}
		if note := summary.Results[0].NameServers[0].Note; note != "already dumped" {
			t.Errorf("expected already dumped note, got %q", note)
		}
	})
}

func TestScannerRegistrar(t *testing.T) {
	env := newTestEnv()
	summary := env.scanner(WithRegistrar(fakeRegistrar{})).Run(context.Background(), []string{"example.com", "example.org"}, 1)

	if summary.Results[0].Registrar != "Example Registrar, Inc." {
		t.Errorf("expected registrar in result, got %q", summary.Results[0].Registrar)
	}
	node, _ := env.store.FindNode(context.Background(), domain.LabelServer, domain.PropName, "example.com")
	if node.GetPropertyString(domain.PropRegistrar) != "Example Registrar, Inc." {
		t.Errorf("expected registrar property, got %v", node.Properties)
	}
	node, _ = env.store.FindNode(context.Background(), domain.LabelServer, domain.PropName, "example.org")
	if _, ok := node.Properties[domain.PropRegistrar]; ok {
		t.Error("expected no registrar property when lookup fails")
	}
}

func TestScannerEvents(t *testing.T) {
	env := newTestEnv()
	bus := NewEventBus()

	var mu sync.Mutex
	var lines []string
	done := bus.Attach(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf("%s %s %s", e.Type, e.Domain, e.NameServer))
	})

	env.scanner(WithEventBus(bus)).Run(context.Background(), []string{"example.com"}, 1)
	bus.Close()
	<-done

	want := []string{
		"domain_started example.com ",
		"nameserver_linked example.com ns1.example.com",
		"vulnerable example.com ns1.example.com",
		"nameserver_linked example.com ns2.example.com",
		"domain_finished example.com ",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected events:\n%s", strings.Join(lines, "\n"))
	}
}

func TestNormalizeNameServers(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"strips root dot", []string{"ns1.example.com."}, []string{"ns1.example.com"}},
		{"drops root and empty", []string{".", "", " "}, []string{}},
		{"dedupes case-insensitively", []string{"NS1.example.com.", "ns1.example.com"}, []string{"ns1.example.com"}},
		{"keeps order", []string{"b.example.", "a.example."}, []string{"b.example", "a.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNameServers(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("NormalizeNameServers(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRunDefaultsConcurrency(t *testing.T) {
	env := newTestEnv()
	summary := env.scanner().Run(context.Background(), []string{"example.com"}, 0)
	if summary.Scanned != 1 {
		t.Errorf("expected scan to run with default concurrency, got %+v", summary)
	}
}
