package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Label is the kind of entity a node represents
type Label string

const (
	LabelDnsServer           Label = "DnsServer"
	LabelServer              Label = "Server"
	LabelCountry             Label = "Country"
	LabelCompany             Label = "Company"
	LabelVulnerabilityMarker Label = "VulnerabilityMarker"
)

// VulnerableMarkerName is the name of the singleton vulnerability marker node
const VulnerableMarkerName = "vulnerable"

// PropName is the identifying property of every node
const PropName = "name"

// PropRegistrar holds the domain registrar on Server nodes
const PropRegistrar = "registrar"

// Labels returns every known label
func Labels() []Label {
	return []Label{LabelDnsServer, LabelServer, LabelCountry, LabelCompany, LabelVulnerabilityMarker}
}

// Valid reports whether the label is one of the known labels
func (l Label) Valid() bool {
	for _, known := range Labels() {
		if l == known {
			return true
		}
	}
	return false
}

// Node represents an entity in the graph
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Label      Label          `json:"label" yaml:"label"`
	Name       string         `json:"name" yaml:"name"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
}

// NewNode creates a node with a deterministic ID
func NewNode(label Label, name string) *Node {
	name = NormalizeName(name)
	return &Node{
		ID:         NodeID(label, name),
		Label:      label,
		Name:       name,
		Properties: make(map[string]any),
		CreatedAt:  time.Now().UTC(),
	}
}

// NodeID derives the node identifier from its label and name
func NodeID(label Label, name string) string {
	hash := sha256.Sum256([]byte(string(label) + "\x00" + name))
	return fmt.Sprintf("%x", hash[:8])
}

// NormalizeName trims a name and strips a trailing root dot. Case is kept.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, ".")
}

// NormalizeHost normalizes a DNS hostname: trimmed, lower-cased, no root dot
func NormalizeHost(host string) string {
	return strings.ToLower(NormalizeName(host))
}

// SetProperty sets a property value
func (n *Node) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (any, bool) {
	if key == PropName {
		return n.Name, true
	}
	if n.Properties == nil {
		return nil, false
	}
	val, ok := n.Properties[key]
	return val, ok
}

// GetPropertyString gets a property as a string
func (n *Node) GetPropertyString(key string) string {
	val, ok := n.GetProperty(key)
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
