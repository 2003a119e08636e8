package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/tunnel"
)

// fakeTool mimics wg-quick: "up" writes the interface marker into runPath,
// "down" removes it.
type fakeTool struct {
	runPath   string
	installed bool
	fail      string

	mu    sync.Mutex
	calls []string
}

func (f *fakeTool) SetTunnel(_ context.Context, name string, enable bool) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	action := "down"
	if enable {
		action = "up"
	}
	f.calls = append(f.calls, action+" "+name)
	if f.fail != "" {
		return false, f.fail
	}
	marker := filepath.Join(f.runPath, name+".name")
	if enable {
		os.MkdirAll(f.runPath, 0o755)
		os.WriteFile(marker, []byte("utun9\n"), 0o644)
	} else {
		os.Remove(marker)
	}
	return true, ""
}

func (f *fakeTool) Installed() bool { return f.installed }

func (f *fakeTool) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const sampleConfig = `[Interface]
PrivateKey = MIKtfK9lvhBbMU9xThDJ+fe7XXN009ljIKiVDxEMXn0=
Address = 192.0.2.0/32

[Peer]
PublicKey = yAnz5TF+lXXJte14tji3zlMNq+hd2rYUIgJBgB3fBmk=
Endpoint = 192.0.2.1/32:51820
AllowedIPs = 198.51.100.0/24
`

func writeConfig(t *testing.T, dir, name, text string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+tunnel.ConfigSuffix), []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestHelper(t *testing.T) (*Helper, *fakeTool, *core.EventBus, string) {
	t.Helper()
	root := t.TempDir()
	confDir := filepath.Join(root, "etc")
	runDir := filepath.Join(root, "run")
	writeConfig(t, confDir, "wg0", sampleConfig)

	tool := &fakeTool{runPath: runDir, installed: true}
	bus := core.NewEventBus()
	builder := &tunnel.Builder{SearchPaths: []string{confDir}, Probe: tunnel.NewProbe(runDir)}
	return NewHelper("1.0.0", builder, tool, bus), tool, bus, runDir
}

func TestHelperGetTunnels(t *testing.T) {
	h, _, _, runDir := newTestHelper(t)
	ctx := context.Background()

	inv := h.GetTunnels(ctx)
	rec, ok := inv.Get("wg0")
	if !ok {
		t.Fatalf("wg0 missing from %v", inv.Names())
	}
	if rec.Connected() {
		t.Error("wg0 connected before marker exists")
	}
	if strings.Contains(rec.Config, "MIKtfK9lvhBbMU9xThDJ") {
		t.Error("private key crossed the boundary")
	}
	if rec.PublicKey == "" {
		t.Error("public key not derived")
	}

	os.MkdirAll(runDir, 0o755)
	os.WriteFile(filepath.Join(runDir, "wg0.name"), []byte("utun4\n"), 0o644)
	rec, _ = h.GetTunnels(ctx).Get("wg0")
	if rec.Interface != "utun4" {
		t.Errorf("Interface = %q, want utun4", rec.Interface)
	}
}

func TestHelperSetTunnelInvalidName(t *testing.T) {
	h, tool, bus, _ := newTestHelper(t)
	var published int
	bus.Subscribe(core.EventTunnelStateChanged, func(core.Event) { published++ })

	for _, name := range []string{"", ";rm -rf *", "this-name-is-too-long"} {
		ok, msg := h.SetTunnel(context.Background(), name, true)
		if ok {
			t.Errorf("SetTunnel(%q) succeeded", name)
		}
		if !strings.Contains(msg, name) {
			t.Errorf("SetTunnel(%q) message %q does not mention the name", name, msg)
		}
	}
	if calls := tool.Calls(); len(calls) != 0 {
		t.Errorf("tool invoked for invalid names: %v", calls)
	}
	if published != 0 {
		t.Errorf("published %d state change(s) for rejected names", published)
	}
}

func TestHelperSetTunnel(t *testing.T) {
	h, tool, bus, _ := newTestHelper(t)
	var events []core.TunnelStatePayload
	bus.Subscribe(core.EventTunnelStateChanged, func(e core.Event) {
		events = append(events, e.Payload.(core.TunnelStatePayload))
	})
	ctx := context.Background()

	if ok, msg := h.SetTunnel(ctx, "wg0", true); !ok || msg != "" {
		t.Fatalf("SetTunnel(up) = %v, %q", ok, msg)
	}
	if rec, _ := h.GetTunnels(ctx).Get("wg0"); !rec.Connected() {
		t.Error("wg0 not connected after up")
	}

	tool.fail = "wg-quick: `wg0' is not a WireGuard interface"
	ok, msg := h.SetTunnel(ctx, "wg0", false)
	if ok || msg != tool.fail {
		t.Errorf("SetTunnel(down) = %v, %q", ok, msg)
	}

	if got := tool.Calls(); len(got) != 2 || got[0] != "up wg0" || got[1] != "down wg0" {
		t.Errorf("calls = %v", got)
	}
	if len(events) != 2 || !events[0].Success || events[1].Success || events[1].Enabled {
		t.Errorf("events = %+v", events)
	}
}

func TestHelperVersionAndInstalled(t *testing.T) {
	h, tool, _, _ := newTestHelper(t)
	if v := h.GetVersion(context.Background()); v != "1.0.0" {
		t.Errorf("GetVersion() = %q", v)
	}
	if !h.WireguardInstalled(context.Background()) {
		t.Error("WireguardInstalled() = false")
	}
	tool.installed = false
	if h.WireguardInstalled(context.Background()) {
		t.Error("WireguardInstalled() = true")
	}
}
