//go:build darwin

package watcher

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const vnodeFlags = unix.NOTE_RENAME | unix.NOTE_WRITE | unix.NOTE_DELETE |
	unix.NOTE_ATTRIB | unix.NOTE_EXTEND | unix.NOTE_LINK | unix.NOTE_REVOKE

type kqueueBackend struct {
	kq      int
	events  []unix.Kevent_t
	timeout unix.Timespec
}

func newBackend() (backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue: %w", err)
	}
	unix.CloseOnExec(kq)
	return &kqueueBackend{
		kq:      kq,
		events:  make([]unix.Kevent_t, 32),
		timeout: unix.NsecToTimespec(int64(100 * time.Millisecond)),
	}, nil
}

// add opens path with O_EVTONLY so the watch does not keep the volume busy,
// and registers an edge-triggered vnode filter on it.
func (b *kqueueBackend) add(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_EVTONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR)
	ev.Fflags = vnodeFlags
	if _, err := unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("kevent register %s: %w", path, err)
	}
	return fd, nil
}

// remove closes the vnode fd; the kernel drops its kevent with it.
func (b *kqueueBackend) remove(fd int) {
	unix.Close(fd)
}

func (b *kqueueBackend) wait() ([]event, error) {
	n, err := unix.Kevent(b.kq, nil, b.events, &b.timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("kevent: %w", err)
	}
	out := make([]event, 0, n)
	for _, ev := range b.events[:n] {
		if ev.Filter != unix.EVFILT_VNODE || ev.Fflags == 0 {
			continue
		}
		op := kqueueOp(ev.Fflags)
		out = append(out, event{
			handle: int(ev.Ident),
			op:     op,
			gone:   op&(Delete|Revoke) != 0,
		})
	}
	return out, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}

func kqueueOp(fflags uint32) Op {
	var op Op
	if fflags&unix.NOTE_RENAME != 0 {
		op |= Rename
	}
	if fflags&unix.NOTE_WRITE != 0 {
		op |= Write
	}
	if fflags&unix.NOTE_DELETE != 0 {
		op |= Delete
	}
	if fflags&unix.NOTE_ATTRIB != 0 {
		op |= Attrib
	}
	if fflags&unix.NOTE_EXTEND != 0 {
		op |= Extend
	}
	if fflags&unix.NOTE_LINK != 0 {
		op |= Link
	}
	if fflags&unix.NOTE_REVOKE != 0 {
		op |= Revoke
	}
	return op
}
