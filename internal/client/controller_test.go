package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wgstatusbar/internal/tunnel"
)

type fakeAPI struct {
	mu        sync.Mutex
	inv       tunnel.Inventory
	installed bool
	version   string
	err       error
	setCalls  []string
	setOK     bool
	setMsg    string
	push      chan struct{}
}

func (f *fakeAPI) GetTunnels(context.Context) (tunnel.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inv, f.err
}

func (f *fakeAPI) SetTunnel(_ context.Context, name string, enable bool) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	action := "down"
	if enable {
		action = "up"
	}
	f.setCalls = append(f.setCalls, action+" "+name)
	return f.setOK, f.setMsg, f.err
}

func (f *fakeAPI) GetVersion(context.Context) (string, error) {
	return f.version, f.err
}

func (f *fakeAPI) WireguardInstalled(context.Context) (bool, error) {
	return f.installed, f.err
}

func (f *fakeAPI) Subscribe(ctx context.Context, ready chan<- struct{}, onChange func()) error {
	if ready != nil {
		close(ready)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.push:
			onChange()
		}
	}
}

func (f *fakeAPI) setInventory(inv tunnel.Inventory) {
	f.mu.Lock()
	f.inv = inv
	f.mu.Unlock()
}

func TestRefresh(t *testing.T) {
	api := &fakeAPI{
		inv:       tunnel.NewInventory(tunnel.Record{Name: "wg0", Interface: "utun3"}),
		installed: false,
	}
	var updates int
	c := NewController(api, func([]Tunnel) { updates++ })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}
	if got := c.Tunnels(); len(got) != 1 || !got[0].Connected() {
		t.Errorf("Tunnels() = %+v", got)
	}
	if c.WireguardInstalled() {
		t.Error("WireguardInstalled() = true")
	}
	if items := c.Menu(DefaultMenuOptions()); items[0].Title != NotInstalledTitle {
		t.Errorf("menu does not start with install hint: %+v", items[0])
	}
}

func TestRefreshError(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	c := NewController(api, nil)
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh succeeded with a failing helper")
	}
}

func TestToggle(t *testing.T) {
	api := &fakeAPI{
		inv:       tunnel.NewInventory(tunnel.Record{Name: "up0", Interface: "utun3"}, tunnel.Record{Name: "down0"}),
		installed: true,
		setOK:     true,
	}
	c := NewController(api, nil)
	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Toggle(ctx, "up0"); err != nil {
		t.Errorf("Toggle(up0): %v", err)
	}
	if err := c.Toggle(ctx, "down0"); err != nil {
		t.Errorf("Toggle(down0): %v", err)
	}
	if err := c.Toggle(ctx, "missing"); !errors.Is(err, ErrUnknownTunnel) {
		t.Errorf("Toggle(missing) = %v, want ErrUnknownTunnel", err)
	}
	if got := strings.Join(api.setCalls, ","); got != "down up0,up down0" {
		t.Errorf("calls = %s", got)
	}

	api.setOK, api.setMsg = false, "wg-quick: `down0' already exists\n"
	err := c.SetTunnel(ctx, "down0", true)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("SetTunnel error = %v", err)
	}
}

func TestWatchRefreshesOnPush(t *testing.T) {
	api := &fakeAPI{installed: true, push: make(chan struct{})}
	updated := make(chan []Tunnel, 4)
	c := NewController(api, func(tunnels []Tunnel) { updated <- tunnels })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go c.Watch(ctx, ready)
	<-ready

	api.setInventory(tunnel.NewInventory(tunnel.Record{Name: "wg0"}))
	api.push <- struct{}{}

	select {
	case tunnels := <-updated:
		if len(tunnels) != 1 || tunnels[0].Name != "wg0" {
			t.Errorf("tunnels = %+v", tunnels)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no refresh after push")
	}
}

func TestHelperStatus(t *testing.T) {
	ctx := context.Background()

	installed, msg := HelperStatus(ctx, &fakeAPI{version: "1.2.0"}, "1.2.0")
	if !installed || msg != "" {
		t.Errorf("matching version = %v, %q", installed, msg)
	}

	installed, msg = HelperStatus(ctx, &fakeAPI{version: "1.1.0"}, "1.2.0")
	if installed || !strings.Contains(msg, "1.1.0") {
		t.Errorf("old version = %v, %q", installed, msg)
	}

	installed, msg = HelperStatus(ctx, &fakeAPI{err: errors.New("no such file")}, "1.2.0")
	if installed || !strings.Contains(msg, "no such file") {
		t.Errorf("unreachable = %v, %q", installed, msg)
	}
}
