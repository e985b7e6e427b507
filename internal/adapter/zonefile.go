package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zonegraph/internal/domain"
)

// ZoneWriter dumps transferred zones as plain text files
type ZoneWriter struct {
	dir string
}

// NewZoneWriter creates a writer rooted at dir
func NewZoneWriter(dir string) *ZoneWriter {
	return &ZoneWriter{dir: dir}
}

// Path returns the dump location for a (domain, name server) pair
func (w *ZoneWriter) Path(domainName, nameserver string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s#%s.zone", domainName, nameserver))
}

// Exists reports whether a dump for the pair is already on disk
func (w *ZoneWriter) Exists(domainName, nameserver string) bool {
	_, err := os.Stat(w.Path(domainName, nameserver))
	return err == nil
}

// Write stores the zone and returns the file path. The file is written to a
// temporary name first so a partial dump never looks complete.
func (w *ZoneWriter) Write(zone *domain.Zone) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create zone dir: %w", err)
	}

	path := w.Path(zone.Domain, zone.NameServer)
	tmp, err := os.CreateTemp(w.dir, ".zone-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(FormatZone(zone)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write zone: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close zone: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename zone: %w", err)
	}
	return path, nil
}

// FormatZone renders one line per (owner name, RR set):
//
//	owner ttl class type rdata[ | rdata...]
//
// Owners are relative to the zone origin, "@" being the apex. Duplicate
// records (the closing SOA of a transfer) are dropped.
func FormatZone(zone *domain.Zone) string {
	type setKey struct{ owner, class, rtype string }

	origin := strings.ToLower(strings.TrimSuffix(zone.Domain, ".")) + "."
	var order []setKey
	sets := make(map[setKey][]domain.ZoneRecord)
	seen := make(map[domain.ZoneRecord]bool)

	for _, rr := range zone.Records {
		if seen[rr] {
			continue
		}
		seen[rr] = true

		key := setKey{relativeOwner(rr.Owner, origin), rr.Class, rr.Type}
		if _, ok := sets[key]; !ok {
			order = append(order, key)
		}
		sets[key] = append(sets[key], rr)
	}

	var b strings.Builder
	for _, key := range order {
		set := sets[key]
		data := make([]string, len(set))
		for i, rr := range set {
			data[i] = rr.Data
		}
		fmt.Fprintf(&b, "%s %d %s %s %s\n", key.owner, set[0].TTL, key.class, key.rtype, strings.Join(data, " | "))
	}
	return b.String()
}

func relativeOwner(owner, origin string) string {
	lower := strings.ToLower(owner)
	if !strings.HasSuffix(lower, ".") {
		lower += "."
	}
	if lower == origin {
		return "@"
	}
	if strings.HasSuffix(lower, "."+origin) {
		return owner[:len(lower)-len(origin)-1]
	}
	return owner
}
