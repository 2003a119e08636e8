// Package cli holds the cobra commands of the helper daemon and the
// command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wgstatusbar/internal/core"
	"wgstatusbar/internal/daemon"
	"wgstatusbar/internal/service"
	"wgstatusbar/internal/version"
)

// HelperProgram is the helper binary name used in version output.
const HelperProgram = "wgstatusbar-helper"

// NewServeCommand runs the privileged helper daemon. It is normally started
// by launchd or systemd with the listening socket inherited.
func NewServeCommand() *cobra.Command {
	var configPath string
	var socket string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the helper daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetFlags(log.LstdFlags | log.Lmicroseconds)
			startTime := time.Now()

			bus := core.NewEventBus()
			cfgManager := core.NewConfigManager(configPath, bus)
			if err := cfgManager.Load(); err != nil {
				return err
			}
			cfg := cfgManager.Get()
			if socket != "" {
				cfg.Socket = socket
			}
			core.Log.Configure(cfg.Logging)
			core.Log.Infof("Daemon", "%s starting (prefix=%s, socket=%s)",
				version.String(HelperProgram), cfg.Prefix, cfg.Socket)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl := daemon.NewController(daemon.ControllerConfig{
				Config:    cfg,
				Version:   version.Get(),
				Bus:       bus,
				StartTime: startTime,
			})
			// SIGHUP re-reads the config file; the controller applies it.
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-hup:
						if err := cfgManager.Load(); err != nil {
							core.Log.Warnf("Daemon", "Config reload failed: %v", err)
						}
					}
				}
			}()

			if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			core.Log.Infof("Daemon", "Exiting after %s", ctrl.Helper().Uptime().Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", core.DefaultConfigPath, "path to config file")
	cmd.Flags().StringVar(&socket, "socket", "", "override the IPC endpoint from the config")
	return cmd
}

// NewInstallCommand installs the helper as an on-demand system service.
func NewInstallCommand() *cobra.Command {
	opts := service.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the helper as a system service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Install(opts); err != nil {
				return fmt.Errorf("install failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "helper installed; it starts when a client connects")
			return nil
		},
	}
	bindServiceFlags(cmd, &opts)
	return cmd
}

// NewUninstallCommand removes the system service.
func NewUninstallCommand() *cobra.Command {
	opts := service.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the helper system service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Uninstall(opts); err != nil {
				return fmt.Errorf("uninstall failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "helper uninstalled")
			return nil
		},
	}
	bindServiceFlags(cmd, &opts)
	return cmd
}

// NewRestartCommand restarts the installed service.
func NewRestartCommand() *cobra.Command {
	opts := service.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the helper system service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Restart(opts); err != nil {
				return fmt.Errorf("restart failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "helper restarted")
			return nil
		},
	}
	bindServiceFlags(cmd, &opts)
	return cmd
}

// NewServiceStatusCommand reports whether the service is installed.
func NewServiceStatusCommand() *cobra.Command {
	opts := service.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the helper service is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service.IsInstalled(opts) {
				fmt.Fprintln(cmd.OutOrStdout(), "helper is installed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "helper is not installed")
			}
			return nil
		},
	}
	bindServiceFlags(cmd, &opts)
	return cmd
}

func bindServiceFlags(cmd *cobra.Command, opts *service.Options) {
	cmd.Flags().StringVar(&opts.Label, "label", opts.Label, "service label")
	cmd.Flags().StringVar(&opts.Binary, "binary", opts.Binary, "installed helper binary path")
	cmd.Flags().StringVar(&opts.Config, "config", opts.Config, "config file passed to the helper")
	cmd.Flags().StringVar(&opts.Socket, "socket", opts.Socket, "socket path held by the service manager")
	cmd.Flags().StringVar(&opts.Log, "log", opts.Log, "log file (launchd only)")
}

// NewVersionCommand prints the build version of prog.
func NewVersionCommand(prog string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String(prog))
		},
	}
}
