package client

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Fixed menu titles.
const (
	NoTunnelsTitle     = "No tunnel configurations found"
	ParseFailedTitle   = "Could not parse tunnel configuration!"
	NotInstalledTitle  = "WireGuard not installed! Click here for instructions..."
	InstallInstruction = `Currently this application does not come with WireGuard binaries. It is required to manually install these using a package manager.

Please follow the instructions on:

  https://www.wireguard.com/install/

and restart this application afterwards.`
)

// MenuItem is one row of the status menu.
type MenuItem struct {
	Title  string
	Indent int
	// Checked marks a connected tunnel row.
	Checked bool
	// Tunnel is set on rows that toggle a tunnel when activated.
	Tunnel string
	// Separator rows have no title.
	Separator bool
}

// MenuOptions control how much detail the menu shows.
type MenuOptions struct {
	// AllDetails shows configuration details for every tunnel.
	AllDetails bool
	// ConnectedDetails shows details for connected tunnels.
	ConnectedDetails bool
	// WireguardMissing prepends the install hint.
	WireguardMissing bool
}

// DefaultMenuOptions shows details for connected tunnels only.
func DefaultMenuOptions() MenuOptions {
	return MenuOptions{ConnectedDetails: true}
}

// BuildMenu lays out the tunnel part of the status menu. Tunnels are listed
// by lower-cased name, each followed by its indented details.
func BuildMenu(tunnels []Tunnel, opts MenuOptions) []MenuItem {
	var items []MenuItem
	if opts.WireguardMissing {
		items = append(items, MenuItem{Title: NotInstalledTitle}, MenuItem{Separator: true})
	}
	if len(tunnels) == 0 {
		return append(items, MenuItem{Title: NoTunnelsTitle})
	}

	sorted := append([]Tunnel(nil), tunnels...)
	SortTunnels(sorted)

	for _, t := range sorted {
		items = append(items, MenuItem{Title: t.Name, Checked: t.Connected(), Tunnel: t.Name})

		if t.Connected() && (opts.ConnectedDetails || opts.AllDetails) {
			items = append(items, detail("Interface: %s", t.Interface))
		}
		if !(t.Connected() && opts.ConnectedDetails) && !opts.AllDetails {
			continue
		}
		if t.Config == nil {
			items = append(items, detail("%s", ParseFailedTitle))
			continue
		}
		items = append(items, detail("Address: %s", t.Config.Address))
		for _, p := range t.Config.Peers {
			items = append(items,
				detail("Endpoint: %s", p.Endpoint),
				detail("Allowed IPs: %s", strings.Join(p.AllowedIPs, ", ")),
			)
		}
		if t.PublicKey != "" {
			items = append(items, detail("Public key: %s", t.PublicKey))
		}
		if t.Connected() && t.Stats != nil {
			if !t.Stats.LatestHandshake.IsZero() {
				items = append(items, detail("Latest handshake: %s ago", formatAge(time.Since(t.Stats.LatestHandshake))))
			}
			items = append(items, detail("Transfer: %s received, %s sent",
				formatBytes(t.Stats.ReceiveBytes), formatBytes(t.Stats.TransmitBytes)))
		}
	}
	return items
}

func detail(format string, args ...any) MenuItem {
	return MenuItem{Title: fmt.Sprintf(format, args...), Indent: 1}
}

// Render formats menu items as plain text, one row per line.
func Render(items []MenuItem) string {
	var b strings.Builder
	for _, it := range items {
		switch {
		case it.Separator:
			b.WriteString("---\n")
		case it.Tunnel != "":
			mark := "[ ]"
			if it.Checked {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "%s %s\n", mark, it.Title)
		default:
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat("    ", it.Indent), it.Title)
		}
	}
	return b.String()
}

const maxErrorLength = 400

// DisplayError shortens a helper error message for a dialog.
func DisplayError(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= maxErrorLength {
		return msg
	}
	r := []rune(msg)
	return string(r[:maxErrorLength]) + "…"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return d.Round(time.Minute).String()
	}
}
