// Package memory provides a process-local GraphStore.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"zonegraph/internal/domain"
	"zonegraph/internal/repository"
)

// Repository implements repository.GraphStore in memory. A single mutex
// makes every create-or-get atomic.
type Repository struct {
	mu    sync.Mutex
	nodes map[string]*domain.Node // keyed by node ID
	edges map[string]*domain.Edge // keyed by edge ID
	order []string                // node IDs in insertion order
	eord  []string                // edge IDs in insertion order
}

var _ repository.GraphStore = (*Repository)(nil)

// New creates an empty in-memory repository
func New() *Repository {
	return &Repository{
		nodes: make(map[string]*domain.Node),
		edges: make(map[string]*domain.Edge),
	}
}

// FindNode returns the first node with label whose property key equals value
func (r *Repository) FindNode(ctx context.Context, label domain.Label, key, value string) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == domain.PropName {
		if n, ok := r.nodes[domain.NodeID(label, domain.NormalizeName(value))]; ok {
			return cloneNode(n), nil
		}
		return nil, nil
	}

	for _, id := range r.order {
		n := r.nodes[id]
		if n.Label != label {
			continue
		}
		if n.GetPropertyString(key) == value {
			return cloneNode(n), nil
		}
	}
	return nil, nil
}

// CreateNode stores the node unless (label, name) already exists
func (r *Repository) CreateNode(ctx context.Context, label domain.Label, props map[string]any) (*domain.Node, error) {
	name, ok := repository.NameFromProps(props)
	if !ok {
		return nil, &domain.StoreError{Op: "create node", Err: errors.New("missing name property")}
	}
	if !label.Valid() {
		return nil, &domain.StoreError{Op: "create node", Err: fmt.Errorf("unknown label %q", label)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.NodeID(label, name)
	if existing, ok := r.nodes[id]; ok {
		return cloneNode(existing), nil
	}

	node := domain.NewNode(label, name)
	for k, v := range repository.ExtraProps(props) {
		node.SetProperty(k, v)
	}
	r.nodes[id] = node
	r.order = append(r.order, id)
	return cloneNode(node), nil
}

// FindRelationship reports whether the edge exists
func (r *Repository) FindRelationship(ctx context.Context, start, end *domain.Node, relType domain.RelType) (bool, error) {
	if start == nil || end == nil {
		return false, &domain.StoreError{Op: "find relationship", Err: errors.New("nil endpoint")}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.edges[domain.NewEdge(start.ID, end.ID, relType).ID]
	return ok, nil
}

// CreateRelationship stores the edge unless it already exists
func (r *Repository) CreateRelationship(ctx context.Context, start *domain.Node, relType domain.RelType, end *domain.Node) (*domain.Edge, error) {
	if start == nil || end == nil {
		return nil, &domain.StoreError{Op: "create relationship", Err: errors.New("nil endpoint")}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[start.ID]; !ok {
		return nil, &domain.StoreError{Op: "create relationship", Err: fmt.Errorf("unknown node %s", start.ID)}
	}
	if _, ok := r.nodes[end.ID]; !ok {
		return nil, &domain.StoreError{Op: "create relationship", Err: fmt.Errorf("unknown node %s", end.ID)}
	}

	edge := domain.NewEdge(start.ID, end.ID, relType)
	if existing, ok := r.edges[edge.ID]; ok {
		e := *existing
		return &e, nil
	}
	r.edges[edge.ID] = edge
	r.eord = append(r.eord, edge.ID)
	e := *edge
	return &e, nil
}

// ExportFragment returns a copy of the whole graph sorted by label and name
func (r *Repository) ExportFragment(ctx context.Context) (*domain.GraphFragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frag := domain.NewGraphFragment()
	for _, id := range r.order {
		frag.AddNode(*cloneNode(r.nodes[id]))
	}
	for _, id := range r.eord {
		frag.AddEdge(*r.edges[id])
	}

	sort.SliceStable(frag.Nodes, func(i, j int) bool {
		if frag.Nodes[i].Label != frag.Nodes[j].Label {
			return frag.Nodes[i].Label < frag.Nodes[j].Label
		}
		return frag.Nodes[i].Name < frag.Nodes[j].Name
	})
	return frag, nil
}

// Close is a no-op
func (r *Repository) Close() error {
	return nil
}

func cloneNode(n *domain.Node) *domain.Node {
	c := *n
	c.Properties = make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	return &c
}
