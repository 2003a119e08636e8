package daemon

import (
	"context"
	"time"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/ipc"
	"wgstatusbar/internal/tunnel"
)

// TunnelTool brings tunnels up and down.
type TunnelTool interface {
	SetTunnel(ctx context.Context, name string, enable bool) (bool, string)
	Installed() bool
}

// Helper implements the RPC surface. It holds no tunnel state: every
// GetTunnels call builds a new snapshot from disk.
type Helper struct {
	version   string
	startTime time.Time
	builder   *tunnel.Builder
	tool      TunnelTool
	bus       *core.EventBus
}

var _ ipc.Helper = (*Helper)(nil)

// NewHelper creates a Helper. bus receives EventTunnelStateChanged after
// every toggle; it may be nil.
func NewHelper(version string, builder *tunnel.Builder, tool TunnelTool, bus *core.EventBus) *Helper {
	return &Helper{
		version:   version,
		startTime: time.Now(),
		builder:   builder,
		tool:      tool,
		bus:       bus,
	}
}

// GetTunnels scans and probes all tunnels.
func (h *Helper) GetTunnels(_ context.Context) tunnel.Inventory {
	inv := h.builder.Build()
	core.Log.Debugf("Helper", "Scanned %d tunnel(s)", inv.Len())
	return inv
}

// SetTunnel runs wg-quick for name. The client going away does not abort a
// started toggle: wg-quick is left to finish within the tool timeout.
func (h *Helper) SetTunnel(ctx context.Context, name string, enable bool) (bool, string) {
	action := "down"
	if enable {
		action = "up"
	}
	if err := tunnel.ValidateName(name); err != nil {
		core.Log.Warnf("Helper", "Rejected set tunnel %s: %v", action, err)
		return false, err.Error()
	}
	core.Log.Infof("Helper", "Set tunnel %q %s", name, action)

	ok, msg := h.tool.SetTunnel(context.WithoutCancel(ctx), name, enable)
	if ok {
		core.Log.Infof("Helper", "Tunnel %q is %s", name, action)
	} else {
		core.Log.Warnf("Helper", "Tunnel %q %s failed: %s", name, action, msg)
	}

	if h.bus != nil {
		h.bus.Publish(core.Event{
			Type:    core.EventTunnelStateChanged,
			Payload: core.TunnelStatePayload{Name: name, Enabled: enable, Success: ok},
		})
	}
	return ok, msg
}

// GetVersion returns the helper build version.
func (h *Helper) GetVersion(_ context.Context) string {
	return h.version
}

// WireguardInstalled reports whether wg and wg-quick exist.
func (h *Helper) WireguardInstalled(_ context.Context) bool {
	return h.tool.Installed()
}

// Uptime returns how long the helper has been running.
func (h *Helper) Uptime() time.Duration {
	return time.Since(h.startTime)
}
