package service

import (
	"context"
	"fmt"
	"sync"

	"zonegraph/internal/domain"
	"zonegraph/internal/repository"
)

// GraphBuilder translates scan findings into nodes and relationships.
// Every operation is idempotent: it looks the entity up first and only
// creates it when absent. The store's create-or-get semantics close the gap
// between lookup and creation when workers race on the same entity.
type GraphBuilder struct {
	store repository.GraphStore

	mu     sync.Mutex
	marker *domain.Node
}

// NewGraphBuilder creates a builder on top of store
func NewGraphBuilder(store repository.GraphStore) *GraphBuilder {
	return &GraphBuilder{store: store}
}

// EnsureNode returns the (label, name) node, creating it if needed
func (b *GraphBuilder) EnsureNode(ctx context.Context, label domain.Label, name string) (*domain.Node, error) {
	return b.EnsureNodeWith(ctx, label, name, nil)
}

// EnsureNodeWith is EnsureNode with extra properties applied only when the
// node is created
func (b *GraphBuilder) EnsureNodeWith(ctx context.Context, label domain.Label, name string, props map[string]any) (*domain.Node, error) {
	name = canonicalName(label, name)
	if name == "" {
		return nil, &domain.StoreError{Op: "ensure node", Err: fmt.Errorf("empty %s name", label)}
	}

	node, err := b.store.FindNode(ctx, label, domain.PropName, name)
	if err != nil {
		return nil, err
	}
	if node != nil {
		return node, nil
	}

	create := make(map[string]any, len(props)+1)
	for k, v := range props {
		create[k] = v
	}
	create[domain.PropName] = name
	return b.store.CreateNode(ctx, label, create)
}

// EnsureRelationship makes sure both nodes and the relType edge between them exist
func (b *GraphBuilder) EnsureRelationship(ctx context.Context, startLabel domain.Label, startName string, endLabel domain.Label, endName string, relType domain.RelType) error {
	start, err := b.EnsureNode(ctx, startLabel, startName)
	if err != nil {
		return err
	}
	end, err := b.EnsureNode(ctx, endLabel, endName)
	if err != nil {
		return err
	}
	return b.ensureEdge(ctx, start, relType, end)
}

func (b *GraphBuilder) ensureEdge(ctx context.Context, start *domain.Node, relType domain.RelType, end *domain.Node) error {
	exists, err := b.store.FindRelationship(ctx, start, end, relType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = b.store.CreateRelationship(ctx, start, relType, end)
	return err
}

// DomainKnown reports whether domainName was already recorded as a Server
func (b *GraphBuilder) DomainKnown(ctx context.Context, domainName string) (bool, error) {
	node, err := b.store.FindNode(ctx, domain.LabelServer, domain.PropName, domain.NormalizeHost(domainName))
	if err != nil {
		return false, err
	}
	return node != nil, nil
}

// LinkNameServer records that nameserver serves domainName:
// (DnsServer)-[:KNOWS]->(Server). serverProps apply only when the Server
// node is created.
func (b *GraphBuilder) LinkNameServer(ctx context.Context, domainName, nameserver string, serverProps map[string]any) error {
	server, err := b.EnsureNodeWith(ctx, domain.LabelServer, domainName, serverProps)
	if err != nil {
		return err
	}
	ns, err := b.EnsureNode(ctx, domain.LabelDnsServer, nameserver)
	if err != nil {
		return err
	}
	return b.ensureEdge(ctx, ns, domain.RelKnows, server)
}

// LinkHosting records where host is hosted:
// (host)-[:HOSTED_BY]->(Company)-[:FROM]->(Country). Without a company
// nothing is linked; without a country only the HOSTED_BY edge is.
func (b *GraphBuilder) LinkHosting(ctx context.Context, label domain.Label, host string, reg domain.Registration) error {
	if label != domain.LabelServer && label != domain.LabelDnsServer {
		return &domain.StoreError{Op: "link hosting", Err: fmt.Errorf("label %s cannot be hosted", label)}
	}

	reg = reg.Normalize()
	if reg.Company == "" {
		return nil
	}

	hostNode, err := b.EnsureNode(ctx, label, host)
	if err != nil {
		return err
	}
	company, err := b.EnsureNode(ctx, domain.LabelCompany, reg.Company)
	if err != nil {
		return err
	}
	if err := b.ensureEdge(ctx, hostNode, domain.RelHostedBy, company); err != nil {
		return err
	}

	if reg.Country == "" {
		return nil
	}
	country, err := b.EnsureNode(ctx, domain.LabelCountry, reg.Country)
	if err != nil {
		return err
	}
	return b.ensureEdge(ctx, company, domain.RelFrom, country)
}

// MarkVulnerable links domainName to the vulnerability marker:
// (Server)-[:VULNERABLE]->(VulnerabilityMarker)
func (b *GraphBuilder) MarkVulnerable(ctx context.Context, domainName string) error {
	marker, err := b.vulnerableMarker(ctx)
	if err != nil {
		return err
	}
	server, err := b.EnsureNode(ctx, domain.LabelServer, domainName)
	if err != nil {
		return err
	}
	return b.ensureEdge(ctx, server, domain.RelVulnerable, marker)
}

// vulnerableMarker returns the singleton marker node, ensuring it once per
// builder. A failed attempt is retried on the next call.
func (b *GraphBuilder) vulnerableMarker(ctx context.Context) (*domain.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.marker != nil {
		return b.marker, nil
	}
	marker, err := b.EnsureNode(ctx, domain.LabelVulnerabilityMarker, domain.VulnerableMarkerName)
	if err != nil {
		return nil, err
	}
	b.marker = marker
	return marker, nil
}

// canonicalName lower-cases DNS names; other labels keep their case
func canonicalName(label domain.Label, name string) string {
	switch label {
	case domain.LabelServer, domain.LabelDnsServer:
		return domain.NormalizeHost(name)
	default:
		return domain.NormalizeName(name)
	}
}
