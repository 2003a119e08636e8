//go:build linux

package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const systemdDir = "/etc/systemd/system"

func unitPaths(opts Options) (socket, service string) {
	unit := UnitName(opts)
	return filepath.Join(systemdDir, unit+".socket"), filepath.Join(systemdDir, unit+".service")
}

// Install copies the running binary into place and enables a
// socket-activated systemd unit.
func Install(opts Options) error {
	if err := os.MkdirAll(filepath.Dir(opts.Config), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := copyExecutable(opts.Binary); err != nil {
		return err
	}

	socket, service, err := RenderSystemdUnits(opts)
	if err != nil {
		return err
	}
	socketPath, servicePath := unitPaths(opts)
	if err := os.WriteFile(socketPath, socket, 0o644); err != nil {
		return fmt.Errorf("write socket unit: %w", err)
	}
	if err := os.WriteFile(servicePath, service, 0o644); err != nil {
		return fmt.Errorf("write service unit: %w", err)
	}

	if _, err := run("systemctl", "daemon-reload"); err != nil {
		return err
	}
	_, err = run("systemctl", "enable", "--now", UnitName(opts)+".socket")
	return err
}

// Uninstall disables the units and removes them with the binary.
func Uninstall(opts Options) error {
	unit := UnitName(opts)
	out, err := run("systemctl", "disable", "--now", unit+".socket", unit+".service")
	if err != nil && !strings.Contains(out, "not loaded") && !strings.Contains(out, "does not exist") {
		return err
	}
	socketPath, servicePath := unitPaths(opts)
	os.Remove(socketPath)
	os.Remove(servicePath)
	os.Remove(opts.Binary)
	run("systemctl", "daemon-reload")
	return nil
}

// IsInstalled checks whether the socket unit exists.
func IsInstalled(opts Options) bool {
	socketPath, _ := unitPaths(opts)
	_, err := os.Stat(socketPath)
	return err == nil
}

// Restart restarts the helper service.
func Restart(opts Options) error {
	_, err := run("systemctl", "restart", UnitName(opts)+".service")
	return err
}
