package repository

import (
	"context"

	"zonegraph/internal/domain"
)

// GraphStore defines the interface for graph data access
type GraphStore interface {
	// FindNode returns the node with the given label whose property key equals
	// value, or nil if none exists
	FindNode(ctx context.Context, label domain.Label, key, value string) (*domain.Node, error)

	// CreateNode stores a node built from props (props["name"] is required) and
	// returns it. If the (label, name) node already exists the stored node is
	// returned unchanged.
	CreateNode(ctx context.Context, label domain.Label, props map[string]any) (*domain.Node, error)

	// FindRelationship reports whether an edge of relType exists from start to end
	FindRelationship(ctx context.Context, start, end *domain.Node, relType domain.RelType) (bool, error)

	// CreateRelationship stores an edge of relType from start to end, returning
	// the existing edge if it is already present
	CreateRelationship(ctx context.Context, start *domain.Node, relType domain.RelType, end *domain.Node) (*domain.Edge, error)

	// ExportFragment returns every node and edge
	ExportFragment(ctx context.Context) (*domain.GraphFragment, error)

	// Close releases resources
	Close() error
}

// NameFromProps extracts the identifying name from a property map
func NameFromProps(props map[string]any) (string, bool) {
	raw, ok := props[domain.PropName]
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	if !ok {
		return "", false
	}
	name = domain.NormalizeName(name)
	return name, name != ""
}

// ExtraProps returns props without the identifying name
func ExtraProps(props map[string]any) map[string]any {
	extra := make(map[string]any, len(props))
	for k, v := range props {
		if k == domain.PropName {
			continue
		}
		extra[k] = v
	}
	return extra
}
