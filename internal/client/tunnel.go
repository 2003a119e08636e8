// Package client is the unprivileged side: it pulls tunnel state from the
// helper, reacts to its push notifications and turns the state into a menu.
package client

import (
	"sort"
	"strings"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/tunnel"
)

// Tunnel is a tunnel as presented to the user.
type Tunnel struct {
	Name      string
	Interface string
	// Config is nil when the helper could not read the configuration.
	Config    *tunnel.ParsedConfig
	PublicKey string
	Stats     *tunnel.Stats
}

// Connected reports whether the tunnel has a live interface.
func (t Tunnel) Connected() bool {
	return t.Interface != ""
}

// FromInventory converts a helper snapshot, sorted by case-insensitive name.
func FromInventory(inv tunnel.Inventory) []Tunnel {
	out := make([]Tunnel, 0, inv.Len())
	for _, rec := range inv.Records() {
		t := Tunnel{
			Name:      rec.Name,
			Interface: rec.Interface,
			PublicKey: rec.PublicKey,
			Stats:     rec.Stats,
		}
		cfg, err := tunnel.ParseConfig(rec.Config)
		if err != nil {
			core.Log.Warnf("Client", "Failed to read configuration for tunnel %q: %v", rec.Name, err)
		} else {
			t.Config = cfg
		}
		out = append(out, t)
	}
	SortTunnels(out)
	return out
}

// SortTunnels orders tunnels by lower-cased name.
func SortTunnels(tunnels []Tunnel) {
	sort.SliceStable(tunnels, func(i, j int) bool {
		return strings.ToLower(tunnels[i].Name) < strings.ToLower(tunnels[j].Name)
	})
}

// AnyConnected reports whether at least one tunnel is up; it selects the
// status icon.
func AnyConnected(tunnels []Tunnel) bool {
	for _, t := range tunnels {
		if t.Connected() {
			return true
		}
	}
	return false
}
