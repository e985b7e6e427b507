package domain

import "strings"

// ZoneRecord is one resource record obtained from a zone transfer
type ZoneRecord struct {
	Owner string `json:"owner"`
	TTL   uint32 `json:"ttl"`
	Class string `json:"class"`
	Type  string `json:"type"`
	Data  string `json:"data"`
}

// Zone is the record set returned by a successful transfer
type Zone struct {
	Domain     string       `json:"domain"`
	NameServer string       `json:"nameserver"`
	Records    []ZoneRecord `json:"records"`
}

// Len returns the number of records
func (z *Zone) Len() int {
	if z == nil {
		return 0
	}
	return len(z.Records)
}

// HasSOA reports whether the zone contains a start-of-authority record
func (z *Zone) HasSOA() bool {
	if z == nil {
		return false
	}
	for _, rr := range z.Records {
		if strings.EqualFold(rr.Type, "SOA") {
			return true
		}
	}
	return false
}

// Usable reports whether the transfer produced zone data worth reporting
func (z *Zone) Usable() bool {
	return z.Len() > 0 && z.HasSOA()
}
