//go:build darwin

package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const launchDaemonsDir = "/Library/LaunchDaemons"

func plistPath(opts Options) string {
	return filepath.Join(launchDaemonsDir, opts.Label+".plist")
}

// Install copies the running binary into place, writes the LaunchDaemon
// plist and bootstraps it. launchd then holds the socket.
func Install(opts Options) error {
	if err := os.MkdirAll(filepath.Dir(opts.Config), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := copyExecutable(opts.Binary); err != nil {
		return err
	}

	plist, err := RenderLaunchdPlist(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(plistPath(opts), plist, 0o644); err != nil {
		return fmt.Errorf("write plist: %w", err)
	}

	out, err := run("launchctl", "bootstrap", "system", plistPath(opts))
	if err != nil {
		if strings.Contains(out, "already bootstrapped") || strings.Contains(out, "service already loaded") {
			return Restart(opts)
		}
		return err
	}
	return nil
}

// Uninstall stops the daemon and removes the plist and binary.
func Uninstall(opts Options) error {
	out, err := run("launchctl", "bootout", "system/"+opts.Label)
	if err != nil && !strings.Contains(out, "Could not find") && !strings.Contains(out, "No such process") {
		return err
	}
	os.Remove(plistPath(opts))
	os.Remove(opts.Binary)
	os.Remove(opts.Socket)
	return nil
}

// IsInstalled checks whether the LaunchDaemon plist exists.
func IsInstalled(opts Options) bool {
	_, err := os.Stat(plistPath(opts))
	return err == nil
}

// Restart restarts a running daemon via launchctl kickstart.
func Restart(opts Options) error {
	_, err := run("launchctl", "kickstart", "-k", "system/"+opts.Label)
	return err
}
