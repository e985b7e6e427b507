// Package repository defines the graph storage boundary for zonegraph.
//
// This package provides the GraphStore abstraction used by the graph
// builder. Two implementations exist: the sqlite subpackage (authoritative,
// persistent across runs) and the memory subpackage (process-local, used by
// tests).
//
// # Uniqueness
//
// A node is unique per (label, name) and a relationship is unique per
// (from, to, type). Implementations enforce this themselves: CreateNode and
// CreateRelationship are create-or-get operations, so concurrent callers
// that race past a negative FindNode/FindRelationship still end up sharing
// a single stored entity.
//
// # Errors
//
// Every failure is returned as a *domain.StoreError naming the operation.
package repository
