package tunnel

import (
	"os"
	"path/filepath"
	"strings"
)

// NameMarkerSuffix is appended to a tunnel name to form the marker file
// wg-quick writes into its run directory while the tunnel is up.
const NameMarkerSuffix = ".name"

// Probe reads live interface names from wg-quick's run directory.
type Probe struct {
	RunPath string
}

// NewProbe creates a Probe for the given run directory.
func NewProbe(runPath string) *Probe {
	return &Probe{RunPath: runPath}
}

// InterfaceName returns the interface currently backing tunnel name, or the
// empty string when the tunnel is not connected or the marker is unreadable.
func (p *Probe) InterfaceName(name string) string {
	data, err := os.ReadFile(p.MarkerPath(name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// MarkerPath is the marker file location for tunnel name.
func (p *Probe) MarkerPath(name string) string {
	return filepath.Join(p.RunPath, name+NameMarkerSuffix)
}
