package adapter

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"

	"zonegraph/internal/domain"
)

// WhoisSource looks up IP registration data over the WHOIS protocol. The
// query goes to IANA first and follows the referral to the owning registry.
// When that registry refers further (ARIN for ERX and legacy ranges), only
// the most specific answer is kept.
type WhoisSource struct {
	client *whois.Client
	query  func(ip string) (string, error)
}

// NewWhoisSource creates a WHOIS source with the given query timeout
func NewWhoisSource(timeout time.Duration) *WhoisSource {
	client := whois.NewClient().SetDisableReferralChain(true)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	s := &WhoisSource{client: client}
	s.query = func(ip string) (string, error) {
		return s.client.Whois(ip)
	}
	return s
}

// Name returns the source identifier
func (s *WhoisSource) Name() string {
	return "whois"
}

// Lookup queries the registry for ip and extracts country and organization
func (s *WhoisSource) Lookup(ctx context.Context, ip string) (domain.Registration, error) {
	if err := ctx.Err(); err != nil {
		return domain.Registration{}, err
	}

	raw, err := s.query(ip)
	if err != nil {
		return domain.Registration{}, err
	}

	reg := parseWhois(raw)
	if reg.Empty() {
		return domain.Registration{}, errors.New("no registration data in whois response")
	}
	reg.IP = ip
	reg.Source = s.Name()
	return reg.Normalize(), nil
}

var (
	// keys opening a network object across RIR formats
	networkKeys = []string{"inetnum", "inet6num", "netrange", "cidr"}

	// organization keys in priority order
	descriptionKeys = []string{"descr", "orgname", "org-name", "owner"}

	// keys pointing at a more specific registry
	referralKeys = []string{"referralserver", "refer"}

	handleSuffix = regexp.MustCompile(`\s*\([A-Z0-9-]+\)$`)
)

// whoisObject is one blank-line separated block of key/value lines. Only the
// first value of each key is kept.
type whoisObject map[string]string

// parseWhois extracts the country and description of the first network
// entry in the most specific registry answer. Both values always come from
// the same answer: a referring registry's objects are never mixed with the
// referred one's.
func parseWhois(raw string) domain.Registration {
	return parseWhoisObjects(mostSpecificAnswer(splitWhoisObjects(raw)))
}

// mostSpecificAnswer drops the referring registry's objects from a chained
// answer. The referred answer starts at the first network object after the
// last referral.
func mostSpecificAnswer(objects []whoisObject) []whoisObject {
	last := -1
	for i, obj := range objects {
		if obj.hasAny(referralKeys...) {
			last = i
		}
	}
	if last < 0 {
		return objects
	}
	for i := last + 1; i < len(objects); i++ {
		if objects[i].hasAny(networkKeys...) {
			return objects[i:]
		}
	}
	return objects
}

// parseWhoisObjects reads one registry answer. Values found in the network
// object win; the answer's other objects are consulted only for keys the
// network object lacks (ARIN keeps Country in the org object).
func parseWhoisObjects(objects []whoisObject) domain.Registration {
	network := findNetwork(objects)

	var reg domain.Registration
	if network != nil {
		reg.Country = network.first("country")
		reg.Company = network.first(descriptionKeys...)
	}
	if reg.Country == "" {
		reg.Country = firstInObjects(objects, "country")
	}
	if reg.Company == "" {
		reg.Company = firstInObjects(objects, descriptionKeys...)
	}
	if reg.Company == "" && network != nil {
		if org := network.first("organization"); org != "" {
			reg.Company = handleSuffix.ReplaceAllString(org, "")
		}
	}
	if reg.Company == "" && network != nil {
		reg.Company = network.first("netname")
	}

	// RIPE uses "EU # Country is really world wide" style comments
	if i := strings.IndexAny(reg.Country, " #"); i > 0 {
		reg.Country = reg.Country[:i]
	}
	return reg
}

func findNetwork(objects []whoisObject) whoisObject {
	for _, obj := range objects {
		if obj.hasAny(networkKeys...) {
			return obj
		}
	}
	return nil
}

func splitWhoisObjects(raw string) []whoisObject {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	var objects []whoisObject
	current := whoisObject{}
	flush := func() {
		if len(current) > 0 {
			objects = append(objects, current)
			current = whoisObject{}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(strings.ToLower(trimmed), "%referral ") {
			current["referralserver"] = strings.TrimSpace(trimmed[len("%referral "):])
			continue
		}
		if strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		// continuation lines
		if line[0] == ' ' || line[0] == '\t' || line[0] == '+' {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || strings.Contains(key, " ") || value == "" {
			continue
		}
		if _, exists := current[key]; !exists {
			current[key] = value
		}
	}
	flush()
	return objects
}

func (o whoisObject) hasAny(keys ...string) bool {
	for _, k := range keys {
		if _, ok := o[k]; ok {
			return true
		}
	}
	return false
}

func (o whoisObject) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := o[k]; ok {
			return v
		}
	}
	return ""
}

func firstInObjects(objects []whoisObject, keys ...string) string {
	for _, k := range keys {
		for _, obj := range objects {
			if v, ok := obj[k]; ok {
				return v
			}
		}
	}
	return ""
}
