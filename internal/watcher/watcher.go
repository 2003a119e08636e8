// Package watcher delivers change notifications for a set of directories.
//
// Each Watcher owns one OS notification handle (inotify on Linux, kqueue on
// macOS) and one goroutine that reads it. Notifications are delivered on that
// goroutine, never on the caller of Add.
package watcher

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"wgstatusbar/internal/core"
)

// Op is a set of change kinds.
type Op uint32

const (
	Rename Op = 1 << iota
	Write
	Delete
	Attrib
	Extend
	Link
	Revoke
)

var opNames = []struct {
	op   Op
	name string
}{
	{Rename, "rename"},
	{Write, "write"},
	{Delete, "delete"},
	{Attrib, "attrib"},
	{Extend, "extend"},
	{Link, "link"},
	{Revoke, "revoke"},
}

func (o Op) String() string {
	var parts []string
	for _, n := range opNames {
		if o&n.op != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether o contains every bit of other.
func (o Op) Has(other Op) bool {
	return o&other == other
}

// Handler receives one notification per OS event batch entry.
type Handler func(op Op, path string)

// ErrUnsupported is returned by New on platforms without a backend.
var ErrUnsupported = errors.New("watcher: unsupported platform")

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("watcher: closed")

// event is what a backend reports for one watched handle.
type event struct {
	handle int
	op     Op
	// gone means the OS dropped the watch; the path may be registered again.
	gone bool
}

type backend interface {
	add(path string) (int, error)
	remove(handle int)
	// wait blocks for at most a short poll interval.
	wait() ([]event, error)
	close() error
}

// Watcher watches directories and calls a single Handler on changes.
type Watcher struct {
	handler Handler
	b       backend

	mu      sync.Mutex
	paths   map[string]int
	handles map[int]string
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// New creates a watcher and starts its event loop.
func New(handler Handler) (*Watcher, error) {
	b, err := newBackend()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		handler: handler,
		b:       b,
		paths:   make(map[string]int),
		handles: make(map[int]string),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add registers paths. Already watched paths are left alone; paths that do
// not exist yet are skipped so that a later Add can pick them up.
func (w *Watcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	for _, path := range paths {
		if _, ok := w.paths[path]; ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			core.Log.Debugf("Watcher", "Not watching %s: %v", path, err)
			continue
		}
		handle, err := w.b.add(path)
		if err != nil {
			core.Log.Warnf("Watcher", "Failed to watch %s: %v", path, err)
			continue
		}
		w.paths[path] = handle
		w.handles[handle] = path
		core.Log.Debugf("Watcher", "Watching %s", path)
	}
	return nil
}

// Watched returns the currently registered paths, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Close stops the event loop and releases every OS handle. It is safe to
// call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done

	w.mu.Lock()
	for handle := range w.handles {
		w.b.remove(handle)
	}
	w.paths = map[string]int{}
	w.handles = map[int]string{}
	w.mu.Unlock()
	return w.b.close()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		events, err := w.b.wait()
		if err != nil {
			core.Log.Errorf("Watcher", "Event loop stopped: %v", err)
			return
		}
		for _, ev := range events {
			path, ok := w.resolve(ev)
			if !ok {
				continue
			}
			if ev.op != 0 && w.handler != nil {
				w.handler(ev.op, path)
			}
		}
	}
}

// resolve maps an event to its path, forgetting the registration when the
// OS dropped the watch.
func (w *Watcher) resolve(ev event) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	path, ok := w.handles[ev.handle]
	if !ok {
		return "", false
	}
	if ev.gone {
		delete(w.handles, ev.handle)
		delete(w.paths, path)
		w.b.remove(ev.handle)
		core.Log.Debugf("Watcher", "Watch on %s dropped", path)
	}
	return path, true
}
