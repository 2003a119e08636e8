package tunnel

import (
	"os"
	"path/filepath"
	"strings"

	"wgstatusbar/internal/core"
)

// Source is a discovered tunnel configuration file.
type Source struct {
	Name string
	Path string
}

// Scan lists tunnel configuration files in searchPaths. Directories are read
// non-recursively and in order; when the same name exists in more than one
// directory the first directory wins and later files are logged as shadowed.
// Unreadable directories are logged and skipped.
func Scan(searchPaths []string) []Source {
	var sources []Source
	seen := make(map[string]string)

	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			core.Log.Debugf("Scanner", "Skipping %s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			fileName := entry.Name()
			if !strings.HasSuffix(fileName, ConfigSuffix) {
				continue
			}
			name := strings.TrimSuffix(fileName, ConfigSuffix)
			if name == "" {
				continue
			}
			path := filepath.Join(dir, fileName)
			if first, dup := seen[name]; dup {
				core.Log.Infof("Scanner", "Tunnel %q at %s is shadowed by %s, ignoring", name, path, first)
				continue
			}
			seen[name] = path
			sources = append(sources, Source{Name: name, Path: path})
		}
	}
	return sources
}

// ScanNames returns only the tunnel names Scan would report, in the same order.
func ScanNames(searchPaths []string) []string {
	sources := Scan(searchPaths)
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}

// ReadConfig returns the raw contents of a configuration file. A read failure
// is logged and reported as the empty string, which callers must treat as
// "no configuration available".
func ReadConfig(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		core.Log.Warnf("Scanner", "Failed to read %s: %v", path, err)
		return ""
	}
	return string(data)
}
