package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X svcmon/internal/cli.Version=...".
var (
	Version = "dev"
	Commit  = ""
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show svcmon version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			displayVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func displayVersion(out io.Writer) {
	fmt.Fprintf(out, "svcmon version %s\n", Version)
	if Commit != "" {
		fmt.Fprintf(out, "Commit: %s\n", Commit)
	}
	fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
}
