package codec

import (
	"fmt"
	"io"
	"time"

	"zonegraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFragment represents the YAML structure for graph data
type yamlFragment struct {
	Nodes []yamlNode `yaml:"nodes"`
	Edges []yamlEdge `yaml:"edges"`
}

type yamlNode struct {
	ID         string         `yaml:"id"`
	Label      string         `yaml:"label"`
	Name       string         `yaml:"name"`
	Properties map[string]any `yaml:"properties,omitempty"`
	CreatedAt  string         `yaml:"created_at,omitempty"`
}

type yamlEdge struct {
	ID        string `yaml:"id,omitempty"`
	FromID    string `yaml:"from_id"`
	ToID      string `yaml:"to_id"`
	Type      string `yaml:"type"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// Parse imports graph data from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.GraphFragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fragment := domain.NewGraphFragment()

	for _, yn := range yf.Nodes {
		label := domain.Label(yn.Label)
		if !label.Valid() {
			return nil, fmt.Errorf("node %q: unknown label %q", yn.Name, yn.Label)
		}
		node := domain.NewNode(label, yn.Name)
		if yn.ID != "" {
			node.ID = yn.ID
		}
		for k, v := range yn.Properties {
			node.SetProperty(k, v)
		}
		if t, ok := parseTime(yn.CreatedAt); ok {
			node.CreatedAt = t
		}
		fragment.AddNode(*node)
	}

	for _, ye := range yf.Edges {
		edge := domain.NewEdge(ye.FromID, ye.ToID, domain.RelType(ye.Type))
		if ye.ID != "" {
			edge.ID = ye.ID
		}
		if t, ok := parseTime(ye.CreatedAt); ok {
			edge.CreatedAt = t
		}
		fragment.AddEdge(*edge)
	}

	return fragment, nil
}

// Export exports graph data to YAML
func (c *YAMLCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	yf := yamlFragment{
		Nodes: make([]yamlNode, 0, len(fragment.Nodes)),
		Edges: make([]yamlEdge, 0, len(fragment.Edges)),
	}

	for _, node := range fragment.Nodes {
		yf.Nodes = append(yf.Nodes, yamlNode{
			ID:         node.ID,
			Label:      string(node.Label),
			Name:       node.Name,
			Properties: node.Properties,
			CreatedAt:  formatTime(node.CreatedAt),
		})
	}

	for _, edge := range fragment.Edges {
		yf.Edges = append(yf.Edges, yamlEdge{
			ID:        edge.ID,
			FromID:    edge.FromID,
			ToID:      edge.ToID,
			Type:      string(edge.Type),
			CreatedAt: formatTime(edge.CreatedAt),
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
