//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"wgstatusbar/internal/core"
)

// DefaultAddress is the Unix domain socket the helper listens on.
const DefaultAddress = "/var/run/wgstatusbar.sock"

// launchdFD is where launchd and systemd place the first activated socket.
const launchdFD = 3

// Listen returns the socket handed over by the service manager when the
// helper was socket-activated, otherwise a fresh socket at address.
func Listen(address string) (net.Listener, error) {
	ln, err := inheritedListener()
	if err == nil {
		core.Log.Infof("IPC", "Using socket inherited from the service manager")
		return ln, nil
	}
	core.Log.Debugf("IPC", "No inherited socket: %v", err)

	if fi, err := os.Lstat(address); err == nil && fi.Mode()&os.ModeSocket != 0 {
		// Stale socket from a previous run.
		os.Remove(address)
	}
	ln, err = net.Listen("unix", address)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", address, err)
	}
	// Clients run as the logged-in user.
	if err := os.Chmod(address, 0o666); err != nil {
		ln.Close()
		return nil, fmt.Errorf("ipc: chmod %s: %w", address, err)
	}
	return ln, nil
}

func dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", address)
}

// inheritedListener checks the systemd LISTEN_FDS contract first, then the
// launchd convention of a single socket on fd 3.
func inheritedListener() (net.Listener, error) {
	if fds := os.Getenv("LISTEN_FDS"); fds != "" {
		if pid, _ := strconv.Atoi(os.Getenv("LISTEN_PID")); pid != 0 && pid != os.Getpid() {
			return nil, fmt.Errorf("LISTEN_PID %d is not this process", pid)
		}
		if n, err := strconv.Atoi(fds); err != nil || n < 1 {
			return nil, fmt.Errorf("invalid LISTEN_FDS %q", fds)
		}
		return listenerFromFD(launchdFD)
	}
	if fds := os.Getenv("LAUNCHD_SOCKET_FDS"); fds != "" {
		fd, err := strconv.Atoi(strings.Split(fds, ":")[0])
		if err != nil {
			return nil, fmt.Errorf("invalid LAUNCHD_SOCKET_FDS %q", fds)
		}
		return listenerFromFD(fd)
	}
	if os.Getenv("XPC_SERVICE_NAME") != "" && isSocket(launchdFD) {
		return listenerFromFD(launchdFD)
	}
	return nil, fmt.Errorf("not socket-activated")
}

func isSocket(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFSOCK
}

func listenerFromFD(fd int) (net.Listener, error) {
	if !isSocket(fd) {
		return nil, fmt.Errorf("fd %d is not a socket", fd)
	}
	unix.CloseOnExec(fd)
	f := os.NewFile(uintptr(fd), "activated-socket")
	if f == nil {
		return nil, fmt.Errorf("invalid fd %d", fd)
	}
	// FileListener dups the descriptor.
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("fd %d → listener: %w", fd, err)
	}
	return ln, nil
}
