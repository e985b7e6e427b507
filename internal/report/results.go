package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"zonegraph/internal/domain"
	"zonegraph/internal/service"
)

// ResultLog appends one JSON object per finished domain
type ResultLog struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	err    error
}

// NewResultLog wraps w
func NewResultLog(w io.Writer) *ResultLog {
	return &ResultLog{enc: json.NewEncoder(w)}
}

// OpenResultLog opens path for appending, creating it and its directory if needed
func OpenResultLog(path string) (*ResultLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create result log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	log := NewResultLog(f)
	log.closer = f
	return log, nil
}

// Handle writes the result carried by a domain_finished event
func (l *ResultLog) Handle(event service.Event) {
	if event.Type != service.EventDomainFinished {
		return
	}
	result, ok := event.Payload.(*domain.DomainResult)
	if !ok {
		return
	}
	l.Write(result)
}

// Write appends result. The first write error is kept and returned by Close.
func (l *ResultLog) Write(result *domain.DomainResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return
	}
	if err := l.enc.Encode(result); err != nil {
		l.err = fmt.Errorf("write result for %s: %w", result.Domain, err)
	}
}

// Close closes the underlying file and reports the first write error
func (l *ResultLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer != nil {
		if err := l.closer.Close(); err != nil && l.err == nil {
			l.err = err
		}
		l.closer = nil
	}
	return l.err
}
