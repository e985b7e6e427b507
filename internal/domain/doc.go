// Package domain defines the core types for the zonegraph AXFR reconnaissance graph.
//
// This package contains the entities and value objects that describe what a
// scan discovers: name servers, scanned domains, the organizations and
// countries hosting them, and the vulnerability classification.
//
// # Core Types
//
// Node represents a graph entity identified by its (label, name) pair. The
// labels are DnsServer, Server, Country, Company and the singleton
// VulnerabilityMarker.
//
// Edge represents a directed, typed relationship between two nodes
// (KNOWS, HOSTED_BY, FROM, VULNERABLE). An edge is unique per
// (from, to, type).
//
// GraphFragment is the serializable form of the whole graph used by export.
//
// # Scan Records
//
// DomainResult and NameServerResult record what happened to each domain
// during a run, including every abandoned unit of work and the error class
// that caused it.
//
// # Errors
//
// ResolutionError, TransferError, LookupError and StoreError classify the
// failures that can occur at the network and storage boundaries. They wrap
// their cause and are matched with errors.As.
//
// # Design Principles
//
// - Nodes and edges are created once and never mutated afterwards
// - Identifiers are deterministic, derived from the identifying fields
// - No database or network dependencies
package domain
