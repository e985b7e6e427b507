package domain

import "strings"

// Registration is the IP registration data relevant to the graph
type Registration struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	Company string `json:"company,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Normalize trims the fields and upper-cases the country code
func (r Registration) Normalize() Registration {
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	r.Company = strings.TrimSpace(r.Company)
	return r
}

// Empty reports whether neither country nor company is known
func (r Registration) Empty() bool {
	return r.Country == "" && r.Company == ""
}
