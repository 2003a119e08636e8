// Package service installs the helper as an on-demand system service:
// a launchd daemon on macOS and a socket-activated systemd unit on Linux.
// The service manager owns the socket, so the helper is started by the
// first client connection and may exit when idle.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/ipc"
)

// ErrUnsupported is returned on platforms without an installer.
var ErrUnsupported = errors.New("service: install not supported on this platform")

// Options describe where and how the helper is installed.
type Options struct {
	Label  string
	Binary string
	Config string
	Socket string
	Log    string
}

// DefaultOptions returns the standard install layout.
func DefaultOptions() Options {
	return Options{
		Label:  "com.wgstatusbar.helper",
		Binary: "/usr/local/bin/wgstatusbar-helper",
		Config: core.DefaultConfigPath,
		Socket: ipc.DefaultAddress,
		Log:    "/var/log/wgstatusbar-helper.log",
	}
}

// Not started at load: launchd spawns the helper when a client connects to
// the socket, and a clean exit is not restarted.
var launchdPlistTmpl = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.Binary}}</string>
		<string>serve</string>
		<string>--config</string>
		<string>{{.Config}}</string>
	</array>
	<key>Sockets</key>
	<dict>
		<key>Listeners</key>
		<dict>
			<key>SockPathName</key>
			<string>{{.Socket}}</string>
			<key>SockPathMode</key>
			<integer>438</integer>
		</dict>
	</dict>
	<key>RunAtLoad</key>
	<false/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
	<key>StandardOutPath</key>
	<string>{{.Log}}</string>
	<key>StandardErrorPath</key>
	<string>{{.Log}}</string>
</dict>
</plist>
`))

var systemdSocketTmpl = template.Must(template.New("socket").Parse(`[Unit]
Description=wgstatusbar helper socket

[Socket]
ListenStream={{.Socket}}
SocketMode=0666
RemoveOnStop=true

[Install]
WantedBy=sockets.target
`))

var systemdServiceTmpl = template.Must(template.New("service").Parse(`[Unit]
Description=wgstatusbar helper
Requires={{.Unit}}.socket
After={{.Unit}}.socket

[Service]
Type=simple
ExecStart={{.Binary}} serve --config {{.Config}}
Restart=on-failure
`))

type systemdData struct {
	Options
	Unit string
}

// RenderLaunchdPlist renders the LaunchDaemon property list.
func RenderLaunchdPlist(opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := launchdPlistTmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("render plist: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSystemdUnits renders the .socket and .service units.
func RenderSystemdUnits(opts Options) (socket, service []byte, err error) {
	data := systemdData{Options: opts, Unit: UnitName(opts)}
	var s, v bytes.Buffer
	if err := systemdSocketTmpl.Execute(&s, data); err != nil {
		return nil, nil, fmt.Errorf("render socket unit: %w", err)
	}
	if err := systemdServiceTmpl.Execute(&v, data); err != nil {
		return nil, nil, fmt.Errorf("render service unit: %w", err)
	}
	return s.Bytes(), v.Bytes(), nil
}

// UnitName derives the systemd unit name from the binary name.
func UnitName(opts Options) string {
	name := opts.Binary
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// copyExecutable installs the running binary at dst.
func copyExecutable(dst string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("get executable path: %w", err)
	}
	if exe == dst {
		return nil
	}
	input, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("read binary: %w", err)
	}
	tmp := dst + ".new"
	if err := os.WriteFile(tmp, input, 0o755); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install binary: %w", err)
	}
	return nil
}

// run executes a service manager command and folds its output into the error.
func run(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "), text, err)
	}
	return text, nil
}
