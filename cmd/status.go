package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/diagnose"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Monitor the browser's resource usage",
	Long:  "Live view of the browser's processes (CPU, memory, uptime) alongside host memory and free disk space.",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetInt("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		sampler := status.NewSampler(cfg.Browser.AppName, layout.Profile, browser.NewSystem(cfg.Browser), diagnose.HostProbe{}, logger)
		if asJSON {
			snap, err := sampler.Sample(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		interval := time.Duration(max(refresh, 1)) * time.Second
		return status.Run(cmd.Context(), sampler, cfg.Browser.AppName, interval, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	statusCmd.Flags().Int("refresh", 2, "Refresh interval in seconds")
	statusCmd.Flags().Bool("json", false, "Print one sample as JSON and exit")
}
