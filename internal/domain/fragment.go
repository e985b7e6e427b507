package domain

// GraphFragment represents a graph snapshot for export
type GraphFragment struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// NewGraphFragment creates an empty graph fragment
func NewGraphFragment() *GraphFragment {
	return &GraphFragment{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode adds a node to the fragment
func (g *GraphFragment) AddNode(node Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the fragment
func (g *GraphFragment) AddEdge(edge Edge) {
	g.Edges = append(g.Edges, edge)
}

// CountByLabel returns the number of nodes per label
func (g *GraphFragment) CountByLabel() map[Label]int {
	counts := make(map[Label]int)
	for _, n := range g.Nodes {
		counts[n.Label]++
	}
	return counts
}

// CountByType returns the number of edges per relationship type
func (g *GraphFragment) CountByType() map[RelType]int {
	counts := make(map[RelType]int)
	for _, e := range g.Edges {
		counts[e.Type]++
	}
	return counts
}
