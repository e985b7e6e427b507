// Package adapter implements the network-facing components of zonegraph.
//
// Adapters talk to DNS servers, registries and the local filesystem, and
// translate what they learn into domain types. They hold no graph state.
//
// # DNS
//
// NSResolver queries the NS records of a domain through the system
// resolvers (or configured ones), bounded by a timeout.
//
// AXFRProbe requests a full zone transfer from one name server. A transfer
// that completes with an SOA-bearing record set is the vulnerability signal;
// everything else is a TransferError. ZoneWriter dumps successful transfers
// to "<domain>#<nameserver>.zone" files.
//
// # Enrichment
//
// Enricher resolves a host to its IPv4 address and asks a RegistrationSource
// for the owning network's country and organization. Sources are selected by
// name from a Registry: "whois" (port 43, referral from IANA) and "rdap"
// (JSON over HTTPS). Registry queries are rate limited, cached per IP, and
// concurrent queries for one IP are collapsed into a single request.
//
// RegistrarLookup parses a domain's WHOIS record for its registrar.
//
// # Preflight
//
// NmapPreflight runs an nmap connect scan of TCP/53 and PreflightProbe uses
// it to skip name servers that cannot serve a transfer at all.
package adapter
