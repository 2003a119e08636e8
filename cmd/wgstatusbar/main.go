package main

import (
	"os"

	"github.com/spf13/cobra"

	"wgstatusbar/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:          cli.ClientProgram,
		Short:        "Show and toggle WireGuard tunnels through the helper",
		SilenceUsage: true,
	}

	opts := &cli.ClientOptions{}
	cli.BindClientFlags(root, opts)

	root.AddCommand(
		cli.NewListCommand(opts),
		cli.NewUpCommand(opts),
		cli.NewDownCommand(opts),
		cli.NewToggleCommand(opts),
		cli.NewWatchCommand(opts),
		cli.NewDoctorCommand(opts),
		cli.NewVersionCommand(cli.ClientProgram),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
