package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/tunnel"
)

const defaultDialTimeout = 5 * time.Second

// Client is a connection to the helper.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the helper at address.
func Dial(ctx context.Context, address string) (*Client, error) {
	return DialWithTimeout(ctx, address, defaultDialTimeout)
}

// DialWithTimeout connects with a custom per-attempt dial timeout. The
// connection is established lazily on the first call.
func DialWithTimeout(ctx context.Context, address string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(
		"passthrough:///"+address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return dial(ctx, address)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", address, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetTunnels fetches a fresh inventory snapshot.
func (c *Client) GetTunnels(ctx context.Context) (tunnel.Inventory, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGetTunnels, &emptypb.Empty{}, out); err != nil {
		return tunnel.Inventory{}, err
	}
	return inventoryFromProto(out), nil
}

// SetTunnel brings a tunnel up or down. A transport error is returned as
// err; a refused or failed toggle as (false, message, nil).
func (c *Client) SetTunnel(ctx context.Context, name string, enable bool) (bool, string, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodSetTunnel, setTunnelRequest(name, enable), out); err != nil {
		return false, "", err
	}
	ok, msg := parseSetTunnelResponse(out)
	return ok, msg, nil
}

// GetVersion returns the helper's version string.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, methodGetVersion, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// WireguardInstalled reports whether wg and wg-quick are present on the
// helper's host.
func (c *Client) WireguardInstalled(ctx context.Context) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, methodWireguardInstalled, &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

var subscribeStreamDesc = &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}

// Subscribe opens the push stream and calls onChange once per state change
// until ctx is cancelled or the stream breaks. ready, if non-nil, is closed
// once the helper has attached the subscription.
func (c *Client) Subscribe(ctx context.Context, ready chan<- struct{}, onChange func()) error {
	stream, err := c.conn.NewStream(ctx, subscribeStreamDesc, methodSubscribe)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	if _, err := stream.Header(); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	for {
		msg := new(emptypb.Empty)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			core.Log.Warnf("Client", "Push stream closed: %v", err)
			return err
		}
		onChange()
	}
}
