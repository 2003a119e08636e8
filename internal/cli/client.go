package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wgstatusbar/internal/client"
	"wgstatusbar/internal/ipc"
	"wgstatusbar/internal/version"
)

// ClientProgram is the client binary name used in version output.
const ClientProgram = "wgstatusbar"

// ClientOptions are the flags shared by every client command.
type ClientOptions struct {
	Socket  string
	Timeout time.Duration
}

// BindClientFlags registers the shared client flags on root.
func BindClientFlags(root *cobra.Command, opts *ClientOptions) {
	root.PersistentFlags().StringVar(&opts.Socket, "socket", ipc.DefaultAddress, "helper IPC endpoint")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 70*time.Second, "per-request timeout")
}

func (o *ClientOptions) dial(ctx context.Context) (*ipc.Client, error) {
	c, err := ipc.Dial(ctx, o.Socket)
	if err != nil {
		return nil, fmt.Errorf("connect to helper at %s: %w", o.Socket, err)
	}
	return c, nil
}

// NewListCommand prints the tunnel menu once.
func NewListCommand(opts *ClientOptions) *cobra.Command {
	var details string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tunnels and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			menuOpts, err := parseDetails(details)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			api, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer api.Close()

			ctrl := client.NewController(api, nil)
			if err := ctrl.Refresh(ctx); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), client.Render(ctrl.Menu(menuOpts)))
			return nil
		},
	}
	cmd.Flags().StringVar(&details, "details", "connected", "tunnel details to show: all, connected or none")
	return cmd
}

// NewUpCommand brings a tunnel up.
func NewUpCommand(opts *ClientOptions) *cobra.Command {
	return newSetTunnelCommand(opts, "up", "Bring a tunnel up", true)
}

// NewDownCommand takes a tunnel down.
func NewDownCommand(opts *ClientOptions) *cobra.Command {
	return newSetTunnelCommand(opts, "down", "Take a tunnel down", false)
}

func newSetTunnelCommand(opts *ClientOptions, use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			api, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer api.Close()

			ctrl := client.NewController(api, nil)
			if err := ctrl.SetTunnel(ctx, args[0], enable); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], use)
			return nil
		},
	}
}

// NewToggleCommand flips a tunnel between up and down.
func NewToggleCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle NAME",
		Short: "Toggle a tunnel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			api, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer api.Close()

			ctrl := client.NewController(api, nil)
			if err := ctrl.Refresh(ctx); err != nil {
				return err
			}
			if err := ctrl.Toggle(ctx, args[0]); err != nil {
				return err
			}
			t, _ := ctrl.Tunnel(args[0])
			state := "up"
			if t.Connected() {
				state = "down"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
			return nil
		},
	}
}

// NewWatchCommand keeps a subscription open and reprints the menu on every
// state change pushed by the helper.
func NewWatchCommand(opts *ClientOptions) *cobra.Command {
	var details string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the tunnel menu whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			menuOpts, err := parseDetails(details)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer api.Close()

			out := cmd.OutOrStdout()
			var ctrl *client.Controller
			ctrl = client.NewController(api, func([]client.Tunnel) {
				printMenu(out, ctrl.Menu(menuOpts))
			})

			ready := make(chan struct{})
			errCh := make(chan error, 1)
			go func() { errCh <- ctrl.Watch(ctx, ready) }()

			select {
			case <-ready:
			case err := <-errCh:
				return err
			}
			refreshCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			err = ctrl.Refresh(refreshCtx)
			cancel()
			if err != nil {
				return err
			}

			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&details, "details", "connected", "tunnel details to show: all, connected or none")
	return cmd
}

// NewDoctorCommand checks that the helper is reachable, matches this
// client's version and has wg-quick available.
func NewDoctorCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the helper installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			out := cmd.OutOrStdout()

			api, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer api.Close()

			ok, msg := client.HelperStatus(ctx, api, version.Get())
			if !ok {
				return errors.New(msg)
			}
			fmt.Fprintf(out, "helper %s reachable at %s\n", version.Get(), opts.Socket)

			installed, err := api.WireguardInstalled(ctx)
			if err != nil {
				return err
			}
			if !installed {
				return errors.New(client.InstallInstruction)
			}
			fmt.Fprintln(out, "wg-quick installed")
			return nil
		},
	}
}

func parseDetails(s string) (client.MenuOptions, error) {
	switch s {
	case "all":
		return client.MenuOptions{AllDetails: true}, nil
	case "connected", "":
		return client.DefaultMenuOptions(), nil
	case "none":
		return client.MenuOptions{}, nil
	default:
		return client.MenuOptions{}, fmt.Errorf("invalid --details %q: want all, connected or none", s)
	}
}

func printMenu(w io.Writer, items []client.MenuItem) {
	fmt.Fprintf(w, "--- %s\n%s", time.Now().Format(time.TimeOnly), client.Render(items))
}
