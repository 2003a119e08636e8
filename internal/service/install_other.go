//go:build !darwin && !linux

package service

// Install is not supported on this platform.
func Install(Options) error { return ErrUnsupported }

// Uninstall is not supported on this platform.
func Uninstall(Options) error { return ErrUnsupported }

// IsInstalled always reports false on this platform.
func IsInstalled(Options) bool { return false }

// Restart is not supported on this platform.
func Restart(Options) error { return ErrUnsupported }
