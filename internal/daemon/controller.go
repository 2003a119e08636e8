package daemon

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/ipc"
	"wgstatusbar/internal/tunnel"
	"wgstatusbar/internal/watcher"
	"wgstatusbar/internal/wgquick"
)

const stopTimeout = 5 * time.Second

// Controller runs the helper daemon:
//
//	spawn → IDLE → client connects → ACTIVE → last client leaves →
//	PENDING_SHUTDOWN (until start+min_uptime) → exit
//
// A connection during PENDING_SHUTDOWN returns to ACTIVE.
type Controller struct {
	cfg       core.Config
	startTime time.Time
	listener  net.Listener
	bus       *core.EventBus

	helper   *Helper
	builder  *tunnel.Builder
	tracker  *ipc.ConnTracker
	server   *ipc.Server
	debounce *Debouncer

	mu      sync.Mutex
	watcher *watcher.Watcher

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// ControllerConfig holds parameters for creating a Controller.
type ControllerConfig struct {
	Config  core.Config
	Version string
	// Listener is used instead of opening Config.Socket when set.
	Listener net.Listener
	// Bus defaults to a private bus.
	Bus *core.EventBus
	// Tool defaults to wg-quick from Config.
	Tool TunnelTool
	// StartTime defaults to now.
	StartTime time.Time
}

// NewController wires the helper components together. Nothing is started
// until Run.
func NewController(cc ControllerConfig) *Controller {
	if cc.Bus == nil {
		cc.Bus = core.NewEventBus()
	}
	if cc.Tool == nil {
		cc.Tool = wgquick.NewTool(cc.Config)
	}
	if cc.StartTime.IsZero() {
		cc.StartTime = time.Now()
	}

	c := &Controller{
		cfg:        cc.Config,
		startTime:  cc.StartTime,
		listener:   cc.Listener,
		bus:        cc.Bus,
		shutdownCh: make(chan struct{}),
	}
	c.builder = &tunnel.Builder{
		SearchPaths: cc.Config.ConfigPaths,
		Probe:       tunnel.NewProbe(cc.Config.RunPath),
	}
	c.helper = NewHelper(cc.Version, c.builder, cc.Tool, cc.Bus)
	c.tracker = ipc.NewConnTracker(cc.StartTime, cc.Config.MinUptime, c.onAllClientsDisconnected)
	c.server = ipc.NewServer(c.helper, c.tracker)
	c.debounce = NewDebouncer(cc.Config.Debounce, c.pushStateChanged)

	c.bus.Subscribe(core.EventFilesChanged, func(core.Event) {
		c.debounce.Trigger()
	})
	c.bus.Subscribe(core.EventConfigReloaded, c.onConfigReloaded)
	c.bus.Subscribe(core.EventTunnelStateChanged, func(core.Event) {
		// wg-quick may have just created the run directory.
		c.rewatch()
		c.pushStateChanged()
	})
	return c
}

// Run serves clients until ctx is cancelled, Shutdown is called, or the
// idle countdown expires. Returns nil on a clean exit.
func (c *Controller) Run(ctx context.Context) error {
	if c.listener == nil {
		ln, err := ipc.Listen(c.cfg.Socket)
		if err != nil {
			return err
		}
		c.listener = ln
	}

	if stats, err := tunnel.NewDeviceStats(); err != nil {
		core.Log.Warnf("Daemon", "Interface statistics unavailable: %v", err)
	} else {
		c.builder.Stats = stats
		defer stats.Close()
	}

	inv := c.builder.Build()
	core.Log.Infof("Daemon", "Found %d tunnel(s) in %s: %s",
		inv.Len(), strings.Join(c.cfg.ConfigPaths, ", "), strings.Join(inv.Names(), ", "))

	w, err := watcher.New(c.onFileEvent)
	if err != nil {
		core.Log.Warnf("Daemon", "File watching disabled: %v", err)
	} else {
		c.mu.Lock()
		c.watcher = w
		c.mu.Unlock()
		c.rewatch()
	}

	core.Log.Infof("Daemon", "Helper %s started (min uptime %s, keep alive %v)",
		c.helper.GetVersion(ctx), c.cfg.MinUptime, c.cfg.KeepAlive)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.server.Serve(c.listener); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			core.Log.Infof("Daemon", "Stopping: %v", context.Cause(gctx))
		case <-c.shutdownCh:
			core.Log.Infof("Daemon", "Shutdown signal received")
		}
		c.debounce.Stop()
		c.server.Stop(stopTimeout)
		c.mu.Lock()
		if c.watcher != nil {
			c.watcher.Close()
		}
		c.mu.Unlock()
		return nil
	})

	err = g.Wait()
	core.Log.Infof("Daemon", "Controller exiting")
	return err
}

// Shutdown stops Run. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.shutdownCh)
	})
}

// Done is closed once Shutdown has been requested.
func (c *Controller) Done() <-chan struct{} {
	return c.shutdownCh
}

// State returns the connection-driven lifecycle state.
func (c *Controller) State() ipc.State {
	return c.tracker.State()
}

// Helper returns the RPC implementation.
func (c *Controller) Helper() *Helper {
	return c.helper
}

// WatchPaths lists the directories whose changes are pushed to clients.
func (c *Controller) WatchPaths() []string {
	paths := append([]string(nil), c.cfg.ConfigPaths...)
	if c.cfg.RunPath != "" {
		paths = append(paths, c.cfg.RunPath)
	}
	return paths
}

// rewatch registers every watch path again; already watched ones are kept
// and missing ones are retried next time.
func (c *Controller) rewatch() {
	c.mu.Lock()
	w := c.watcher
	c.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.Add(c.WatchPaths()...); err != nil {
		core.Log.Debugf("Daemon", "Watch registration skipped: %v", err)
	}
}

func (c *Controller) onFileEvent(op watcher.Op, path string) {
	core.Log.Debugf("Watcher", "%s: %s", path, op)
	c.bus.Publish(core.Event{
		Type:    core.EventFilesChanged,
		Payload: core.FilesChangedPayload{Path: path, Ops: op.String()},
	})
}

func (c *Controller) pushStateChanged() {
	c.server.Notify()
}

// onAllClientsDisconnected is called by the ConnTracker once the last client
// has gone and the minimum uptime has passed.
func (c *Controller) onAllClientsDisconnected() {
	if c.cfg.KeepAlive {
		core.Log.Infof("Daemon", "All clients disconnected, but keep_alive is set; staying up")
		return
	}
	core.Log.Infof("Daemon", "All clients disconnected; shutting down")
	c.Shutdown()
}

// onConfigReloaded applies new logging levels at once. Paths, socket and
// timings are bound at startup and need a restart.
func (c *Controller) onConfigReloaded(e core.Event) {
	p, ok := e.Payload.(core.ConfigReloadedPayload)
	if !ok {
		return
	}
	core.Log.Configure(p.Config.Logging)
	core.Log.Infof("Daemon", "Configuration reloaded (log level %s); other changes apply on restart",
		core.ParseLevel(p.Config.Logging.Level))
}
