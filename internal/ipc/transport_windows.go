//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// DefaultAddress is the Named Pipe the helper listens on.
const DefaultAddress = `\\.\pipe\wgstatusbar`

// Listen creates a Named Pipe listener. Any authenticated user may connect.
func Listen(address string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;AU)",
		MessageMode:        false,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	ln, err := winio.ListenPipe(address, cfg)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen pipe %s: %w", address, err)
	}
	return ln, nil
}

func dial(ctx context.Context, address string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, address)
}
