package ipc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/stats"

	"wgstatusbar/internal/core"
)

// State is the helper lifecycle state driven by client connections.
type State int

const (
	StateIdle            State = iota // no client connections
	StateActive                       // at least one connection
	StatePendingShutdown              // last connection closed, countdown running
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StatePendingShutdown:
		return "pending-shutdown"
	default:
		return "unknown"
	}
}

// errNoConnection is returned when a stream context carries no tracked
// connection, which only happens if the tracker is not the server's
// stats handler.
var errNoConnection = errors.New("ipc: stream is not bound to a tracked connection")

type connTagKey struct{}

type connTag struct {
	id     string
	remote string
}

func connIDFrom(ctx context.Context) (string, bool) {
	tag, ok := ctx.Value(connTagKey{}).(connTag)
	return tag.id, ok
}

type trackedConn struct {
	id     string
	remote string
	subs   map[uint64]chan struct{}
}

// ConnTracker keeps the set of live client connections and the shutdown
// countdown. It is installed as the gRPC server's stats.Handler so that a
// connection is counted from transport setup to teardown, regardless of how
// many RPCs it carries.
//
// The connection set, the push subscribers and the shutdown timer share one
// mutex.
type ConnTracker struct {
	started   time.Time
	minUptime time.Duration
	onIdle    func()
	now       func() time.Time

	mu            sync.Mutex
	state         State
	conns         map[string]*trackedConn
	nextSub       uint64
	shutdownTimer *time.Timer
	stopped       bool
}

// NewConnTracker creates a tracker for a process that started at started.
// onIdle runs on its own goroutine once the last client has gone and the
// process has been up for at least minUptime.
func NewConnTracker(started time.Time, minUptime time.Duration, onIdle func()) *ConnTracker {
	return &ConnTracker{
		started:   started,
		minUptime: minUptime,
		onIdle:    onIdle,
		now:       time.Now,
		state:     StateIdle,
		conns:     make(map[string]*trackedConn),
	}
}

// State returns the current lifecycle state.
func (ct *ConnTracker) State() State {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.state
}

// ActiveCount returns the number of live connections.
func (ct *ConnTracker) ActiveCount() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.conns)
}

// Stop cancels any pending countdown and disables further ones. Used during
// an explicit shutdown so onIdle cannot fire afterwards.
func (ct *ConnTracker) Stop() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.stopped = true
	ct.cancelShutdownLocked()
}

// Notify wakes every subscribed push stream. Pending wakeups coalesce.
func (ct *ConnTracker) Notify() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	n := 0
	for _, c := range ct.conns {
		for _, ch := range c.subs {
			select {
			case ch <- struct{}{}:
			default:
			}
			n++
		}
	}
	return n
}

// subscribe attaches a push channel to the connection carrying ctx. The
// returned func detaches it.
func (ct *ConnTracker) subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	id, ok := connIDFrom(ctx)
	if !ok {
		return nil, nil, errNoConnection
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	c, ok := ct.conns[id]
	if !ok {
		return nil, nil, errNoConnection
	}
	ct.nextSub++
	subID := ct.nextSub
	ch := make(chan struct{}, 1)
	c.subs[subID] = ch
	core.Log.Debugf("IPC", "Connection %s subscribed to state changes", id)

	return ch, func() {
		ct.mu.Lock()
		defer ct.mu.Unlock()
		if c, ok := ct.conns[id]; ok {
			delete(c.subs, subID)
		}
	}, nil
}

func (ct *ConnTracker) connected(id, remote string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.conns[id] = &trackedConn{id: id, remote: remote, subs: make(map[uint64]chan struct{})}
	if ct.state == StatePendingShutdown {
		ct.cancelShutdownLocked()
		core.Log.Infof("IPC", "Client reconnected, shutdown cancelled")
	}
	ct.state = StateActive
	core.Log.Debugf("IPC", "Connection %s opened from %q (%d active)", id, remote, len(ct.conns))
}

func (ct *ConnTracker) disconnected(id string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if _, ok := ct.conns[id]; !ok {
		return
	}
	delete(ct.conns, id)
	core.Log.Debugf("IPC", "Connection %s closed (%d active)", id, len(ct.conns))
	if len(ct.conns) > 0 || ct.stopped {
		return
	}

	delay := ct.started.Add(ct.minUptime).Sub(ct.now())
	if delay < 0 {
		delay = 0
	}
	ct.cancelShutdownLocked()
	ct.state = StatePendingShutdown
	core.Log.Infof("IPC", "All clients disconnected, shutting down in %s", delay.Round(time.Millisecond))

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		ct.mu.Lock()
		if ct.shutdownTimer != timer || len(ct.conns) > 0 || ct.stopped {
			ct.mu.Unlock()
			return
		}
		ct.shutdownTimer = nil
		ct.state = StateIdle
		ct.mu.Unlock()
		if ct.onIdle != nil {
			ct.onIdle()
		}
	})
	ct.shutdownTimer = timer
}

func (ct *ConnTracker) cancelShutdownLocked() {
	if ct.shutdownTimer != nil {
		ct.shutdownTimer.Stop()
		ct.shutdownTimer = nil
	}
	if ct.state == StatePendingShutdown {
		ct.state = StateIdle
	}
}

// TagConn assigns a connection ID. Every stream context on the connection
// derives from the returned context.
func (ct *ConnTracker) TagConn(ctx context.Context, info *stats.ConnTagInfo) context.Context {
	tag := connTag{id: uuid.NewString()}
	if info != nil && info.RemoteAddr != nil {
		tag.remote = info.RemoteAddr.String()
	}
	return context.WithValue(ctx, connTagKey{}, tag)
}

// HandleConn maintains the connection set.
func (ct *ConnTracker) HandleConn(ctx context.Context, s stats.ConnStats) {
	tag, ok := ctx.Value(connTagKey{}).(connTag)
	if !ok {
		return
	}
	switch s.(type) {
	case *stats.ConnBegin:
		ct.connected(tag.id, tag.remote)
	case *stats.ConnEnd:
		ct.disconnected(tag.id)
	}
}

// TagRPC is a no-op; RPCs are not counted individually.
func (ct *ConnTracker) TagRPC(ctx context.Context, _ *stats.RPCTagInfo) context.Context {
	return ctx
}

// HandleRPC is a no-op.
func (ct *ConnTracker) HandleRPC(context.Context, stats.RPCStats) {}
