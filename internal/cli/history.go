package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:       "history stats|hints",
		Short:     "Print recorded sleep state snapshots or hints as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"stats", "hints"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return fmt.Errorf("--since must be positive")
			}
			to := now()
			from := to.Add(-since)
			return withClient(opts, func(c halClient) error {
				switch args[0] {
				case "stats":
					snaps, err := c.StatsHistory(from, to)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snaps)
				case "hints":
					events, err := c.HintHistory(from, to)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), events)
				}
				return fmt.Errorf("unknown history %q, want stats or hints", args[0])
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

var now = time.Now
