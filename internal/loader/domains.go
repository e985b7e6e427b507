// Package loader reads scan input lists.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/idna"
	"gopkg.in/yaml.v3"
)

// DomainsYAML represents a YAML input file
type DomainsYAML struct {
	Domains []string `yaml:"domains"`
}

// LoadDomains reads the domain list at path. Files ending in .yaml or .yml
// hold a "domains" list; anything else is one domain per line.
func LoadDomains(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open domain list: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseLines(f)
	}
}

// ParseLines reads one domain per line. Blank lines and lines starting with
// '#' are skipped.
func ParseLines(r io.Reader) ([]string, error) {
	var raw []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw = append(raw, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read domain list: %w", err)
	}
	return Clean(raw), nil
}

// ParseYAML reads a YAML document with a top-level "domains" list
func ParseYAML(r io.Reader) ([]string, error) {
	var y DomainsYAML
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		if err == io.EOF {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Clean(y.Domains), nil
}

// Clean normalizes raw entries and drops comments, blanks and duplicates.
// Internationalized names are converted to their ASCII form; names that
// fail conversion are kept as written so the scan can report them.
func Clean(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		name := normalize(line)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func normalize(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.IndexAny(line, " \t#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSuffix(strings.ToLower(line), ".")
	if line == "" {
		return ""
	}

	if ascii, err := idna.Lookup.ToASCII(line); err == nil {
		return ascii
	}
	return line
}
