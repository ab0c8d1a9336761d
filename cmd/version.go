package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Show version information",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
		fmt.Fprintf(cmd.OutOrStdout(), "Host: %s\n", core.OSVersion())
	},
}
