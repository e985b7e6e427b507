package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyZone is returned when a transfer completes without usable zone data
	ErrEmptyZone = errors.New("transfer returned no usable zone data")

	// ErrPortClosed is returned when a name server does not accept TCP on the DNS port
	ErrPortClosed = errors.New("dns tcp port not open")

	// ErrNoNameServers is returned when a domain has no NS records
	ErrNoNameServers = errors.New("no name servers")
)

// ResolutionError reports a failed hostname, address or NS lookup
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TransferError reports a failed zone transfer attempt
type TransferError struct {
	Domain     string
	NameServer string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("axfr %s @ %s: %v", e.Domain, e.NameServer, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// LookupError reports a failed registration data query
type LookupError struct {
	Target string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Target, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// StoreError reports a failed graph store operation
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrorKind classifies an error for result records
type ErrorKind string

const (
	KindResolution ErrorKind = "resolution"
	KindTransfer   ErrorKind = "transfer"
	KindLookup     ErrorKind = "lookup"
	KindStore      ErrorKind = "store"
	KindInternal   ErrorKind = "internal"
)

// KindOf returns the classification of err. Wrapping order matters: a
// LookupError caused by a ResolutionError is a lookup failure.
func KindOf(err error) ErrorKind {
	var (
		lookupErr     *LookupError
		transferErr   *TransferError
		resolutionErr *ResolutionError
		storeErr      *StoreError
	)
	switch {
	case errors.As(err, &storeErr):
		return KindStore
	case errors.As(err, &lookupErr):
		return KindLookup
	case errors.As(err, &transferErr):
		return KindTransfer
	case errors.As(err, &resolutionErr):
		return KindResolution
	default:
		return KindInternal
	}
}
