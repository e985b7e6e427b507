package domain

import "time"

// ScanStatus is the outcome of one domain's pipeline
type ScanStatus string

const (
	StatusScanned ScanStatus = "scanned"
	StatusSkipped ScanStatus = "skipped"
	StatusFailed  ScanStatus = "failed"
)

// ErrorRecord is a reportable failure captured during a scan
type ErrorRecord struct {
	Kind    ErrorKind `json:"kind"`
	Target  string    `json:"target"`
	Message string    `json:"message"`
}

// NewErrorRecord classifies err against target
func NewErrorRecord(target string, err error) ErrorRecord {
	return ErrorRecord{
		Kind:    KindOf(err),
		Target:  target,
		Message: err.Error(),
	}
}

// NameServerResult records what happened for one (domain, name server) pair
type NameServerResult struct {
	Name       string        `json:"name"`
	Vulnerable bool          `json:"vulnerable"`
	Records    int           `json:"records,omitempty"`
	ZoneFile   string        `json:"zone_file,omitempty"`
	Note       string        `json:"note,omitempty"`
	Errors     []ErrorRecord `json:"errors,omitempty"`
}

// DomainResult records what happened for one input domain
type DomainResult struct {
	Domain      string             `json:"domain"`
	Status      ScanStatus         `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	Registrar   string             `json:"registrar,omitempty"`
	NameServers []NameServerResult `json:"nameservers,omitempty"`
	Errors      []ErrorRecord      `json:"errors,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// NewDomainResult starts a result record for domain
func NewDomainResult(domainName string) *DomainResult {
	return &DomainResult{
		Domain:    domainName,
		Status:    StatusScanned,
		StartedAt: time.Now().UTC(),
	}
}

// Skip marks the domain as skipped with a reason
func (r *DomainResult) Skip(reason string) {
	r.Status = StatusSkipped
	r.Reason = reason
}

// Fail marks the domain as abandoned because of err
func (r *DomainResult) Fail(target string, err error) {
	r.Status = StatusFailed
	r.AddError(target, err)
}

// AddError records a non-fatal failure against the domain
func (r *DomainResult) AddError(target string, err error) {
	r.Errors = append(r.Errors, NewErrorRecord(target, err))
}

// Finish stamps the completion time
func (r *DomainResult) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Vulnerable reports whether any name server allowed a transfer
func (r *DomainResult) Vulnerable() bool {
	for _, ns := range r.NameServers {
		if ns.Vulnerable {
			return true
		}
	}
	return false
}

// VulnerableNameServers returns the names of the name servers that allowed a transfer
func (r *DomainResult) VulnerableNameServers() []string {
	var names []string
	for _, ns := range r.NameServers {
		if ns.Vulnerable {
			names = append(names, ns.Name)
		}
	}
	return names
}

// Duration returns how long the pipeline ran
func (r *DomainResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
