package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"wgstatusbar/internal/core"
)

// Server wraps a gRPC server exposing a Helper.
type Server struct {
	grpc    *grpc.Server
	tracker *ConnTracker

	stopOnce sync.Once
	stopping chan struct{}
}

// NewServer creates a server for h. The tracker becomes the server's stats
// handler and owns the push subscribers.
func NewServer(h Helper, tracker *ConnTracker, opts ...grpc.ServerOption) *Server {
	opts = append(opts, grpc.StatsHandler(tracker))
	s := &Server{
		grpc:     grpc.NewServer(opts...),
		tracker:  tracker,
		stopping: make(chan struct{}),
	}
	s.grpc.RegisterService(&ServiceDesc, &helperService{helper: h, tracker: tracker, stopping: s.stopping})
	return s
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	core.Log.Infof("IPC", "Serving on %s", ln.Addr())
	err := s.grpc.Serve(ln)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Notify pushes a state change to every subscribed client.
func (s *Server) Notify() {
	n := s.tracker.Notify()
	core.Log.Debugf("IPC", "State change pushed to %d subscriber(s)", n)
}

// Stop ends all push streams and stops the server gracefully, falling back
// to a hard stop when RPCs are still running after timeout.
func (s *Server) Stop(timeout time.Duration) {
	s.tracker.Stop()
	s.stopOnce.Do(func() { close(s.stopping) })
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		core.Log.Warnf("IPC", "Graceful stop timed out after %s, forcing", timeout)
		s.grpc.Stop()
		<-done
	}
}

// GRPCServer returns the underlying grpc.Server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc
}

// helperService adapts a Helper to the wire-level HelperServer.
type helperService struct {
	helper   Helper
	tracker  *ConnTracker
	stopping <-chan struct{}
}

func (h *helperService) GetTunnels(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s, err := inventoryToProto(h.helper.GetTunnels(ctx))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func (h *helperService) SetTunnel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, enable := parseSetTunnelRequest(req)
	ok, msg := h.helper.SetTunnel(ctx, name, enable)
	return setTunnelResponse(ok, msg), nil
}

func (h *helperService) GetVersion(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(h.helper.GetVersion(ctx)), nil
}

func (h *helperService) WireguardInstalled(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(h.helper.WireguardInstalled(ctx)), nil
}

// Subscribe holds the push stream open for the lifetime of the client's
// subscription, sending one empty message per state change.
func (h *helperService) Subscribe(_ *emptypb.Empty, stream SubscribeServer) error {
	ch, detach, err := h.tracker.subscribe(stream.Context())
	if err != nil {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	defer detach()

	// Headers tell the client the subscription is attached.
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-h.stopping:
			return nil
		case <-ch:
			if err := stream.Send(&emptypb.Empty{}); err != nil {
				core.Log.Warnf("IPC", "Push to client failed: %v", err)
				return fmt.Errorf("push state change: %w", err)
			}
		}
	}
}
