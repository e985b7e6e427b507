package domain

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// RelType represents the type of a relationship between two nodes
type RelType string

const (
	RelKnows      RelType = "KNOWS"      // DnsServer -> Server
	RelHostedBy   RelType = "HOSTED_BY"  // Server/DnsServer -> Company
	RelFrom       RelType = "FROM"       // Company -> Country
	RelVulnerable RelType = "VULNERABLE" // Server -> VulnerabilityMarker
)

// Edge represents a directed relationship between two nodes
type Edge struct {
	ID        string    `json:"id" yaml:"id"`
	FromID    string    `json:"from_id" yaml:"from_id"`
	ToID      string    `json:"to_id" yaml:"to_id"`
	Type      RelType   `json:"type" yaml:"type"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewEdge creates a new edge
func NewEdge(fromID, toID string, relType RelType) *Edge {
	edge := &Edge{
		FromID:    fromID,
		ToID:      toID,
		Type:      relType,
		CreatedAt: time.Now().UTC(),
	}
	edge.ID = edge.GenerateID()
	return edge
}

// GenerateID creates a deterministic ID for the edge. Direction is significant,
// so endpoints are not normalized.
func (e *Edge) GenerateID() string {
	key := fmt.Sprintf("%s-%s-%s", e.FromID, e.ToID, e.Type)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash[:8])
}
