package wgquick

import (
	"context"
	"os"
	"strings"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/tunnel"
)

// Tool is the wg-quick/wg pair the helper supervises.
type Tool struct {
	WGQuick string
	WG      string
	Runner  Runner
}

// NewTool builds a Tool from the helper configuration.
func NewTool(cfg core.Config) *Tool {
	return &Tool{
		WGQuick: cfg.WGQuick,
		WG:      cfg.WG,
		Runner:  NewExecRunner(cfg.SearchPath(), cfg.ToolTimeout),
	}
}

// SetTunnel runs "wg-quick up|down name". Invalid names are refused before
// any process is started. On failure the returned message is the tool's
// stderr, or a description of why it could not run.
func (t *Tool) SetTunnel(ctx context.Context, name string, enable bool) (bool, string) {
	if err := tunnel.ValidateName(name); err != nil {
		core.Log.Warnf("Runner", "Refusing to run wg-quick: %v", err)
		return false, err.Error()
	}

	action := "down"
	if enable {
		action = "up"
	}
	res := t.Runner.Run(ctx, t.WGQuick, action, name)
	if res.Success() {
		return true, ""
	}
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" && res.Err != nil {
		msg = res.Err.Error()
	}
	if msg == "" {
		msg = "wg-quick " + action + " " + name + " failed"
	}
	return false, msg
}

// Installed reports whether both wg and wg-quick exist.
func (t *Tool) Installed() bool {
	return fileExists(t.WG) && fileExists(t.WGQuick)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
