// Package service implements the scan pipeline for zonegraph.
//
// # Services
//
// GraphBuilder translates findings into the fixed graph schema:
//
//	(DnsServer)-[:KNOWS]->(Server)
//	(Server|DnsServer)-[:HOSTED_BY]->(Company)-[:FROM]->(Country)
//	(Server)-[:VULNERABLE]->(VulnerabilityMarker)
//
// Its operations are idempotent and safe to call from many goroutines.
//
// Scanner is the orchestrator. It feeds the input domains to a fixed pool
// of workers; each worker runs one domain end to end: existence check, NS
// resolution, graph linking, enrichment and one transfer attempt per name
// server. Every failure is confined to the domain or name server it
// happened on and recorded in that domain's result.
//
// # Event System
//
// Scanner publishes progress on an EventBus. The console reporter and the
// JSON-lines result log are subscribers.
package service
