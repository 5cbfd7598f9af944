package cli

import (
	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
)

func newStatsCmd(opts *options) *cobra.Command {
	var (
		rpmPath    string
		masterPath string
		remote     bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print platform sleep state statistics as JSON",
		Long: `Print the XO_shutdown and VMIN sleep states with their voters.

By default the RPM statistics files are read directly; --remote asks the
running daemon instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return withClient(opts, func(c halClient) error {
					states, err := c.PlatformLowPowerStats()
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), states)
				})
			}
			states, err := collector.NewPlatformStats(rpmPath, masterPath).Collect()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), states)
		},
	}
	cmd.Flags().StringVar(&rpmPath, "rpm", collector.DefaultRPMStatsPath, "RPM statistics file")
	cmd.Flags().StringVar(&masterPath, "master", collector.DefaultRPMMasterStatsPath, "RPM master statistics file")
	cmd.Flags().BoolVar(&remote, "remote", false, "query the daemon over D-Bus")
	return cmd
}
