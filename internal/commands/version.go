package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const Version = "1.0.0"

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version of orbit-core",
	Long:  `Display the current version of orbit-core.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("orbit-core version %s\n", Version)
	},
}
