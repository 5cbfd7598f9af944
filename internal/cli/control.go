package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/shamu-power/internal/power"
)

var featureNames = map[string]power.Feature{
	"double-tap-to-wake": power.FeatureDoubleTapToWake,
	"supported-profiles": power.FeatureSupportedProfiles,
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", s)
}

func parseHint(s string) (power.Hint, error) {
	if h, ok := power.ParseHint(s); ok {
		return h, nil
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown hint %q", s)
	}
	return power.Hint(n), nil
}

func newHintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hint <name|number> [data]",
		Short: "Send a power hint",
		Long: `Send a power hint to the daemon.

Names: vsync, interaction, video_encode, video_decode, low_power, launch,
set_profile. video_encode takes state=0 or state=1, set_profile takes a
profile number, and low_power is switched on by any non-empty data.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHint(args[0])
			if err != nil {
				return err
			}
			var data string
			if len(args) == 2 {
				data = args[1]
			}
			return withClient(opts, func(c halClient) error {
				return c.PowerHint(h, data)
			})
		},
	}
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [power_save|balanced|high_performance]",
		Short: "Show or set the power profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(opts, func(c halClient) error {
				if len(args) == 0 {
					p, err := c.Profile()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), p)
					return nil
				}
				p, ok := power.ParseProfile(args[0])
				if !ok {
					return fmt.Errorf("unknown profile %q", args[0])
				}
				return c.SetProfile(p)
			})
		},
	}
}

func newInteractiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive on|off",
		Short: "Report the display as on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return withClient(opts, func(c halClient) error {
				return c.SetInteractive(on)
			})
		},
	}
}

func newFeatureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "feature [double-tap-to-wake on|off]",
		Short: "Show features or switch one",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return withClient(opts, func(c halClient) error {
					out := cmd.OutOrStdout()
					mode, err := c.WakeGesture()
					if err != nil {
						mode = "unavailable (" + err.Error() + ")"
					}
					fmt.Fprintf(out, "double-tap-to-wake: %s\n", mode)
					n, err := c.Feature(power.FeatureSupportedProfiles)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "supported-profiles: %d\n", n)
					return nil
				})
			}

			f, ok := featureNames[args[0]]
			if !ok {
				return fmt.Errorf("unknown feature %q", args[0])
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			return withClient(opts, func(c halClient) error {
				return c.SetFeature(f, on)
			})
		},
	}
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the HAL module info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(opts, func(c halClient) error {
				info, err := c.ModuleInfo()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
}
