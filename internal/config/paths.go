package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "ZONEGRAPH_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "zonegraph.yaml"
	// ConfigDirName is the directory under the XDG and system config roots
	ConfigDirName = "zonegraph"
)

// SearchPaths lists the config file candidates in priority order. Unset
// environment variables drop their entry.
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing SearchPaths entry as an
// absolute path, or "" when there is none
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath is where --write-config puts a new file
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

// resolvePaths anchors the relative file locations written in the config
// file at dir so a config under ~/.config works from any directory. Values
// the file left unset keep their working-directory defaults.
func (c *Config) resolvePaths(dir string, set *Config) {
	anchor := func(dst *string, written string) {
		if written != "" && written != ":memory:" && !filepath.IsAbs(written) {
			*dst = filepath.Join(dir, written)
		}
	}
	anchor(&c.Input, set.Input)
	anchor(&c.Database.Path, set.Database.Path)
	anchor(&c.Dump.Dir, set.Dump.Dir)
	anchor(&c.Results.Path, set.Results.Path)
}
