package adapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// RegistrarLookup finds the registrar of a domain from its WHOIS record
type RegistrarLookup struct {
	query func(domainName string) (string, error)
}

// NewRegistrarLookup creates a lookup with the given query timeout
func NewRegistrarLookup(timeout time.Duration) *RegistrarLookup {
	client := whois.NewClient()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &RegistrarLookup{
		query: func(domainName string) (string, error) {
			return client.Whois(domainName)
		},
	}
}

// Registrar returns the registrar name for domainName
func (r *RegistrarLookup) Registrar(ctx context.Context, domainName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := r.query(domainName)
	if err != nil {
		return "", err
	}

	info, err := whoisparser.Parse(raw)
	if err != nil {
		return "", err
	}
	if info.Registrar == nil || strings.TrimSpace(info.Registrar.Name) == "" {
		return "", errors.New("registrar not found in whois record")
	}
	return strings.TrimSpace(info.Registrar.Name), nil
}
