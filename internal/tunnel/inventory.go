package tunnel

import (
	"sort"
	"strings"

	"wgstatusbar/internal/core"
)

// Record is everything the helper knows about one tunnel at scan time.
type Record struct {
	Name string
	// Interface is the live interface name; empty when the tunnel is down.
	Interface string
	// Config is the censored configuration text; empty when unreadable.
	Config string
	// PublicKey is derived from the private key before censoring.
	PublicKey string
	// Stats is set only for connected tunnels whose device could be queried.
	Stats *Stats

	path string
}

// Connected reports whether the tunnel had a live interface at scan time.
func (r Record) Connected() bool {
	return r.Interface != ""
}

// Path is the configuration file the record was built from.
func (r Record) Path() string {
	return r.path
}

// Inventory is an immutable snapshot of all tunnels, rebuilt per scan.
type Inventory struct {
	records map[string]Record
}

// NewInventory builds a snapshot from records. Later duplicates are dropped.
func NewInventory(records ...Record) Inventory {
	m := make(map[string]Record, len(records))
	for _, r := range records {
		if _, dup := m[r.Name]; dup {
			continue
		}
		m[r.Name] = r
	}
	return Inventory{records: m}
}

// Len returns the number of tunnels.
func (inv Inventory) Len() int {
	return len(inv.records)
}

// Get returns the record for name.
func (inv Inventory) Get(name string) (Record, bool) {
	r, ok := inv.records[name]
	return r, ok
}

// Names returns tunnel names sorted case-insensitively.
func (inv Inventory) Names() []string {
	names := make([]string, 0, len(inv.records))
	for n := range inv.records {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a == b {
			return names[i] < names[j]
		}
		return a < b
	})
	return names
}

// Records returns all records in Names order.
func (inv Inventory) Records() []Record {
	out := make([]Record, 0, len(inv.records))
	for _, n := range inv.Names() {
		out = append(out, inv.records[n])
	}
	return out
}

// Builder assembles inventories from disk.
type Builder struct {
	SearchPaths []string
	Probe       *Probe
	// Stats is optional; nil skips statistics.
	Stats StatsReader
}

// Build scans SearchPaths and probes each tunnel. Secrets are stripped from
// every config before it is stored in the snapshot.
func (b *Builder) Build() Inventory {
	sources := Scan(b.SearchPaths)
	records := make([]Record, 0, len(sources))
	for _, src := range sources {
		raw := ReadConfig(src.Path)
		rec := Record{
			Name:      src.Name,
			Config:    Censor(raw),
			PublicKey: PublicKey(raw),
			path:      src.Path,
		}
		if b.Probe != nil {
			rec.Interface = b.Probe.InterfaceName(src.Name)
		}
		if rec.Connected() && b.Stats != nil {
			st, err := b.Stats.Stats(rec.Interface)
			if err != nil {
				core.Log.Debugf("Probe", "No stats for %s (%s): %v", rec.Name, rec.Interface, err)
			} else {
				rec.Stats = st
			}
		}
		records = append(records, rec)
	}
	return NewInventory(records...)
}
