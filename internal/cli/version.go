package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X segsieve/internal/cli.Version=...".
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the segsieve version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "segsieve %s (commit %s, %s, %s/%s)\n",
				Version, GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
