//go:build linux

package watcher

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_MODIFY | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_ATTRIB |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF

type inotifyBackend struct {
	fd     int
	buffer []byte
}

func newBackend() (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	return &inotifyBackend{fd: fd, buffer: make([]byte, 64*1024)}, nil
}

func (b *inotifyBackend) add(path string) (int, error) {
	wd, err := unix.InotifyAddWatch(b.fd, path, inotifyMask)
	if err != nil {
		return 0, fmt.Errorf("inotify_add_watch on %s: %w", path, err)
	}
	return wd, nil
}

func (b *inotifyBackend) remove(wd int) {
	// EINVAL after IN_IGNORED is expected; the kernel already removed it.
	unix.InotifyRmWatch(b.fd, uint32(wd))
}

// wait polls with a 100ms timeout so the loop stays responsive to Close.
func (b *inotifyBackend) wait() ([]event, error) {
	fds := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 100)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	read, err := unix.Read(b.fd, b.buffer)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("read inotify: %w", err)
	}
	return parseInotify(b.buffer[:read]), nil
}

func (b *inotifyBackend) close() error {
	return unix.Close(b.fd)
}

// parseInotify decodes a buffer of inotify_event records (inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded
//	};
func parseInotify(buffer []byte) []event {
	var events []event
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		wd := int(int32(binary.NativeEndian.Uint32(buffer[offset : offset+4])))
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		size := unix.SizeofInotifyEvent + nameLength
		if offset+size > len(buffer) {
			break
		}
		offset += size

		if mask&unix.IN_Q_OVERFLOW != 0 {
			continue
		}
		events = append(events, event{
			handle: wd,
			op:     inotifyOp(mask),
			gone:   mask&unix.IN_IGNORED != 0,
		})
	}
	return events
}

// inotifyOp translates a mask to kqueue-style vnode semantics: entries
// appearing or vanishing inside a watched directory count as a write to it.
func inotifyOp(mask uint32) Op {
	var op Op
	if mask&(unix.IN_CREATE|unix.IN_DELETE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO|unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
		op |= Write
	}
	if mask&unix.IN_ATTRIB != 0 {
		op |= Attrib
	}
	if mask&unix.IN_DELETE_SELF != 0 {
		op |= Delete
	}
	if mask&unix.IN_MOVE_SELF != 0 {
		op |= Rename
	}
	if mask&unix.IN_UNMOUNT != 0 {
		op |= Revoke
	}
	return op
}
