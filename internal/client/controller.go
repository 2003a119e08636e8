package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/tunnel"
)

// HelperAPI is the helper's RPC surface as seen by the client.
type HelperAPI interface {
	GetTunnels(ctx context.Context) (tunnel.Inventory, error)
	SetTunnel(ctx context.Context, name string, enable bool) (bool, string, error)
	GetVersion(ctx context.Context) (string, error)
	WireguardInstalled(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context, ready chan<- struct{}, onChange func()) error
}

// ErrUnknownTunnel is returned by Toggle for names not in the last snapshot.
var ErrUnknownTunnel = errors.New("unknown tunnel")

const refreshTimeout = 10 * time.Second

// Controller keeps the client's view of the helper state. It never blocks
// the caller on a push: NotifyStateChanged refreshes in the background.
type Controller struct {
	api      HelperAPI
	onUpdate func([]Tunnel)

	mu        sync.Mutex
	tunnels   []Tunnel
	installed bool
	refreshMu sync.Mutex
}

// NewController creates a controller. onUpdate, if set, receives every new
// state after a refresh.
func NewController(api HelperAPI, onUpdate func([]Tunnel)) *Controller {
	return &Controller{api: api, onUpdate: onUpdate, installed: true}
}

// Refresh pulls a new snapshot from the helper.
func (c *Controller) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	inv, err := c.api.GetTunnels(ctx)
	if err != nil {
		return fmt.Errorf("get tunnels: %w", err)
	}
	installed, err := c.api.WireguardInstalled(ctx)
	if err != nil {
		return fmt.Errorf("check wireguard: %w", err)
	}
	tunnels := FromInventory(inv)

	c.mu.Lock()
	c.tunnels = tunnels
	c.installed = installed
	c.mu.Unlock()

	core.Log.Debugf("Client", "Loaded %d tunnel(s)", len(tunnels))
	if c.onUpdate != nil {
		c.onUpdate(tunnels)
	}
	return nil
}

// NotifyStateChanged is the push handler: the helper saw a change, so pull
// a new snapshot.
func (c *Controller) NotifyStateChanged() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			core.Log.Warnf("Client", "Refresh after state change failed: %v", err)
		}
	}()
}

// Watch subscribes to helper pushes until ctx ends. ready is closed once
// the subscription is attached.
func (c *Controller) Watch(ctx context.Context, ready chan<- struct{}) error {
	return c.api.Subscribe(ctx, ready, c.NotifyStateChanged)
}

// Tunnels returns the last snapshot.
func (c *Controller) Tunnels() []Tunnel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tunnel(nil), c.tunnels...)
}

// Tunnel looks up a tunnel in the last snapshot.
func (c *Controller) Tunnel(name string) (Tunnel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tunnels {
		if t.Name == name {
			return t, true
		}
	}
	return Tunnel{}, false
}

// WireguardInstalled reports the helper's answer from the last refresh.
func (c *Controller) WireguardInstalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// SetTunnel asks the helper to bring name up or down. A refusal or a failed
// wg-quick run is returned as an error carrying the helper's message.
func (c *Controller) SetTunnel(ctx context.Context, name string, enable bool) error {
	ok, msg, err := c.api.SetTunnel(ctx, name, enable)
	if err != nil {
		return fmt.Errorf("set tunnel %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("set tunnel %q: %s", name, DisplayError(msg))
	}
	return nil
}

// Toggle flips the tunnel's state as known from the last snapshot.
func (c *Controller) Toggle(ctx context.Context, name string) error {
	t, ok := c.Tunnel(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTunnel, name)
	}
	return c.SetTunnel(ctx, name, !t.Connected())
}

// Menu builds the menu for the last snapshot.
func (c *Controller) Menu(opts MenuOptions) []MenuItem {
	c.mu.Lock()
	tunnels := append([]Tunnel(nil), c.tunnels...)
	opts.WireguardMissing = !c.installed
	c.mu.Unlock()
	return BuildMenu(tunnels, opts)
}
