// Package tunnel discovers WireGuard tunnel configurations on disk, parses
// and censors them, and derives live interface state from the markers wg-quick
// leaves in its run directory.
package tunnel

import (
	"errors"
	"fmt"
	"regexp"
)

// ConfigSuffix is the extension of tunnel configuration files.
const ConfigSuffix = ".conf"

// namePattern is the set of names wg-quick itself accepts for an interface
// configuration. Anything else is rejected before it reaches a process argv.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_=+.-]{1,15}$`)

// ErrInvalidName is returned for tunnel names outside namePattern.
var ErrInvalidName = errors.New("invalid tunnel name")

// ValidName reports whether name is an acceptable tunnel name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateName returns an error wrapping ErrInvalidName that quotes the
// offending name, or nil.
func ValidateName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
