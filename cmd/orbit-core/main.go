package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phillmac/orbit-core/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "orbit-core",
	Short: "Channel coordination daemon for a distributed content network",
	Long: `orbit-core runs a peer-to-peer node that joins named channels backed
by distributed append-only logs. Clients talk to it over a local WebSocket
control endpoint to connect, join channels, post messages and share files.

Running orbit-core without a subcommand starts the daemon, same as
"orbit-core serve".`,
	RunE: commands.RunServe,
}

func init() {
	commands.RegisterServeFlags(rootCmd)

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.PsCmd)
	rootCmd.AddCommand(commands.KillCmd)
	rootCmd.AddCommand(commands.KillAllCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
