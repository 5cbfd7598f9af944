// Package cli implements powerctl using Cobra. Commands either read the RPM
// statistics files directly or call the daemon over D-Bus.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
	"github.com/cptspacemanspiff/shamu-power/internal/config"
	dbussvc "github.com/cptspacemanspiff/shamu-power/internal/dbus"
	"github.com/cptspacemanspiff/shamu-power/internal/power"
	"github.com/cptspacemanspiff/shamu-power/internal/storage"
)

// halClient is the subset of the D-Bus client the commands use.
type halClient interface {
	PowerHint(h power.Hint, data string) error
	SetInteractive(on bool) error
	SetProfile(p power.Profile) error
	Profile() (power.Profile, error)
	SetFeature(f power.Feature, enabled bool) error
	Feature(f power.Feature) (int32, error)
	WakeGesture() (string, error)
	ModuleInfo() (*power.ModuleInfo, error)
	PlatformLowPowerStats() ([]collector.SleepState, error)
	StatsHistory(from, to time.Time) ([]collector.PlatformSnapshot, error)
	HintHistory(from, to time.Time) ([]storage.HintEvent, error)
	Close() error
}

// dial connects to the daemon. Tests replace it.
var dial = func(bus string) (halClient, error) {
	c, err := dbussvc.Dial(bus)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type options struct {
	bus string
}

func newRootCmd(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "powerctl",
		Short:         "Inspect and control the Shamu power HAL",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.bus != config.BusSystem && opts.bus != config.BusSession {
				return fmt.Errorf("--bus must be %q or %q", config.BusSystem, config.BusSession)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.bus, "bus", config.BusSystem, "D-Bus bus the daemon is on (system or session)")

	root.AddCommand(
		newStatsCmd(opts),
		newHintCmd(opts),
		newProfileCmd(opts),
		newInteractiveCmd(opts),
		newFeatureCmd(opts),
		newHistoryCmd(opts),
		newInfoCmd(opts),
		newConfigCmd(),
	)
	return root
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withClient dials the daemon, runs fn and closes the connection.
func withClient(opts *options, fn func(c halClient) error) error {
	c, err := dial(opts.bus)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
