package codec

import (
	"context"
	"fmt"
	"io"

	"zonegraph/internal/domain"
	"zonegraph/internal/repository"
)

// Importer interface for importing graph data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.GraphFragment, error)
	Format() string
}

// Exporter interface for exporting graph data to various formats
type Exporter interface {
	Export(fragment *domain.GraphFragment, w io.Writer) error
	Format() string
}

// Codec both imports and exports a format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	switch format {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Restore merges a fragment into store. Nodes are matched by label and
// name, so restoring into a graph that already holds them is a no-op.
// Edges whose endpoints are not in the fragment are rejected.
func Restore(ctx context.Context, store repository.GraphStore, fragment *domain.GraphFragment) (nodes, edges int, err error) {
	byID := make(map[string]*domain.Node, len(fragment.Nodes))

	for _, n := range fragment.Nodes {
		props := make(map[string]any, len(n.Properties)+1)
		for k, v := range n.Properties {
			props[k] = v
		}
		props[domain.PropName] = n.Name

		node, err := store.CreateNode(ctx, n.Label, props)
		if err != nil {
			return nodes, edges, err
		}
		byID[n.ID] = node
		nodes++
	}

	for _, e := range fragment.Edges {
		from, ok := byID[e.FromID]
		if !ok {
			return nodes, edges, fmt.Errorf("edge %s: unknown start node %s", e.ID, e.FromID)
		}
		to, ok := byID[e.ToID]
		if !ok {
			return nodes, edges, fmt.Errorf("edge %s: unknown end node %s", e.ID, e.ToID)
		}
		if _, err := store.CreateRelationship(ctx, from, e.Type, to); err != nil {
			return nodes, edges, err
		}
		edges++
	}

	return nodes, edges, nil
}
