package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"speedtest-core/internal/version"
)

// newVersionCmd 显示版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show detailed version information including build time and git commit.

Example:
  speedtest-client version`,
		Run: runVersion,
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Speed Test Client %s\n", version.GetVersion())
	fmt.Fprintln(out, "Measures TCP and UDP throughput against a speed test server on the local network.")
}
