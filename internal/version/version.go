// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X wgstatusbar/internal/version.version=1.2.0 \
//	    -X wgstatusbar/internal/version.commit=$(git rev-parse --short HEAD) \
//	    -X wgstatusbar/internal/version.buildDate=$(date -u +%F)"
package version

import (
	"fmt"
	"strings"
)

// Unknown is reported when no version was linked in.
const Unknown = "n/a"

var (
	version   = ""
	commit    = ""
	buildDate = ""
)

// Get returns the version string, or Unknown when none was injected.
func Get() string {
	if v := strings.TrimSpace(version); v != "" {
		return v
	}
	return Unknown
}

// Commit returns the source revision, or Unknown.
func Commit() string {
	if c := strings.TrimSpace(commit); c != "" {
		return c
	}
	return Unknown
}

// BuildDate returns the build date, or Unknown.
func BuildDate() string {
	if d := strings.TrimSpace(buildDate); d != "" {
		return d
	}
	return Unknown
}

// String formats the full build info for a binary named prog.
func String(prog string) string {
	return fmt.Sprintf("%s %s (commit=%s, built=%s)", prog, Get(), Commit(), BuildDate())
}
