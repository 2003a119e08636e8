package main

import (
	"os"

	"github.com/spf13/cobra"

	"wgstatusbar/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:          cli.HelperProgram,
		Short:        "Privileged helper that brings WireGuard tunnels up and down",
		SilenceUsage: true,
	}

	root.AddCommand(
		cli.NewServeCommand(),
		cli.NewInstallCommand(),
		cli.NewUninstallCommand(),
		cli.NewRestartCommand(),
		cli.NewServiceStatusCommand(),
		cli.NewVersionCommand(cli.HelperProgram),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
