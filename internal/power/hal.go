// Package power implements the Shamu power HAL: it turns power manager hints
// into CPU governor requests and sysfs writes, and reports platform sleep
// state statistics.
package power

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
	"github.com/cptspacemanspiff/shamu-power/internal/governor"
	"github.com/cptspacemanspiff/shamu-power/internal/metrics"
	"github.com/cptspacemanspiff/shamu-power/internal/sysfs"
)

// DefaultWakeGesturePath is the touch controller attribute for double tap to wake.
const DefaultWakeGesturePath = "/sys/bus/i2c/devices/1-004a/tsp"

const (
	videoEncodeOn  = "state=1"
	videoEncodeOff = "state=0"
)

// ErrInvalidModule is returned by Open for a module name other than ModuleID.
var ErrInvalidModule = errors.New("invalid module name")

// Governor sends requests to the CPU governor.
type Governor interface {
	Init()
	Ready() bool
	TouchBoost() error
	CoresOnline(on bool) error
	EncoderBoost(on bool) error
	LowPower(on bool) error
	Close() error
}

// StatsSource reports platform sleep state statistics.
type StatsSource interface {
	Collect() ([]collector.SleepState, error)
	NumPlatformModes() int
	VoterList() []int
}

type interactiveState int

const (
	interactiveUnknown interactiveState = iota
	interactiveOff
	interactiveOn
)

// HAL holds the power HAL state for one device. It is not safe for concurrent use.
type HAL struct {
	gov             Governor
	stats           StatsSource
	wakeGesturePath string
	log             *slog.Logger
	sysfsLog        *slog.Logger

	profile     Profile
	interactive interactiveState
}

// Options configures Open.
type Options struct {
	BoostSocket        string
	WakeGesturePath    string
	RPMStatsPath       string
	RPMMasterStatsPath string
}

func (o Options) withDefaults() Options {
	if o.BoostSocket == "" {
		o.BoostSocket = governor.DefaultSocketPath
	}
	if o.WakeGesturePath == "" {
		o.WakeGesturePath = DefaultWakeGesturePath
	}
	if o.RPMStatsPath == "" {
		o.RPMStatsPath = collector.DefaultRPMStatsPath
	}
	if o.RPMMasterStatsPath == "" {
		o.RPMMasterStatsPath = collector.DefaultRPMMasterStatsPath
	}
	return o
}

// Open creates the HAL for the named module. Only ModuleID is accepted.
// logger must not carry a topic; each component adds its own.
func Open(name string, opts Options, logger *slog.Logger) (*HAL, error) {
	logger.Debug("open", "name", name)
	if name != ModuleID {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModule, name)
	}
	opts = opts.withDefaults()

	gov := governor.NewClient(opts.BoostSocket, logger.With("topic", "governor"))
	gov.OnSend = func(op governor.Opcode) {
		metrics.GovernorRequestsTotal.WithLabelValues(op.String()).Inc()
	}
	stats := collector.NewPlatformStats(opts.RPMStatsPath, opts.RPMMasterStatsPath)
	return New(gov, stats, opts.WakeGesturePath, logger), nil
}

// New creates a HAL from its collaborators. The profile starts as balanced and
// the interactive state as unknown. Records are logged under the hint and
// sysfs topics.
func New(gov Governor, stats StatsSource, wakeGesturePath string, logger *slog.Logger) *HAL {
	metrics.Profile.Set(float64(ProfileBalanced))
	return &HAL{
		gov:             gov,
		stats:           stats,
		wakeGesturePath: wakeGesturePath,
		log:             logger.With("topic", "hint"),
		sysfsLog:        logger.With("topic", "sysfs"),
		profile:         ProfileBalanced,
	}
}

// Init prepares the governor socket.
func (h *HAL) Init() {
	h.log.Info("init")
	h.gov.Init()
}

// Close releases the governor socket.
func (h *HAL) Close() error {
	return h.gov.Close()
}

// Profile returns the current power profile.
func (h *HAL) Profile() Profile {
	return h.profile
}

// SetInteractive is called when the display turns on or off. It only acts in
// the balanced profile and when the state actually changes.
func (h *HAL) SetInteractive(on bool) {
	if h.profile != ProfileBalanced {
		return
	}
	state := interactiveOff
	if on {
		state = interactiveOn
	}
	if h.interactive == state {
		return
	}
	h.interactive = state

	h.log.Debug("set interactive", "on", on)
	if on {
		metrics.Interactive.Set(1)
		_ = h.gov.CoresOnline(true)
		_ = h.gov.TouchBoost()
	} else {
		metrics.Interactive.Set(0)
		_ = h.gov.CoresOnline(false)
	}
}

// PowerHint dispatches a hint. data is hint specific: "state=0"/"state=1" for
// video encode, a little-endian int32 for set profile, and any non-empty value
// for low power on. Unknown hints are ignored.
func (h *HAL) PowerHint(hint Hint, data []byte) {
	metrics.HintsTotal.WithLabelValues(hint.String()).Inc()

	switch hint {
	case HintInteraction, HintLaunch:
		if h.profile == ProfilePowerSave {
			return
		}
		h.log.Debug("power hint", "hint", hint)
		_ = h.gov.TouchBoost()
	case HintVideoEncode:
		if h.profile != ProfileBalanced {
			return
		}
		h.videoEncode(data)
	case HintSetProfile:
		if len(data) < 4 {
			h.log.Warn("set profile hint without profile", "len", len(data))
			return
		}
		h.SetProfile(Profile(int32(binary.LittleEndian.Uint32(data))))
	case HintLowPower:
		if len(data) > 0 {
			h.SetProfile(ProfilePowerSave)
		} else {
			h.SetProfile(ProfileBalanced)
		}
	}
}

func (h *HAL) videoEncode(data []byte) {
	h.gov.Init()
	if !h.gov.Ready() {
		h.log.Error("boost socket not created")
		return
	}
	if data == nil {
		return
	}

	switch strings.TrimRight(string(data), "\x00") {
	case videoEncodeOn:
		_ = h.gov.EncoderBoost(true)
	case videoEncodeOff:
		_ = h.gov.EncoderBoost(false)
	}
}

// SetProfile switches the power profile. Selecting the current profile does nothing.
func (h *HAL) SetProfile(p Profile) {
	if p == h.profile {
		return
	}
	h.log.Debug("set profile", "profile", p)

	switch p {
	case ProfileBalanced:
		_ = h.gov.LowPower(false)
		_ = h.gov.CoresOnline(false)
		_ = h.gov.EncoderBoost(false)
		h.log.Debug("set balanced mode")
	case ProfileHighPerformance:
		_ = h.gov.LowPower(false)
		_ = h.gov.CoresOnline(false)
		_ = h.gov.EncoderBoost(true)
		h.log.Debug("set performance mode")
	case ProfilePowerSave:
		_ = h.gov.CoresOnline(true)
		_ = h.gov.EncoderBoost(false)
		_ = h.gov.LowPower(true)
		h.log.Debug("set powersave")
	}

	h.profile = p
	metrics.Profile.Set(float64(p))
}

// SetFeature switches a device feature. Only double tap to wake is supported;
// write failures are logged.
func (h *HAL) SetFeature(f Feature, enabled bool) {
	switch f {
	case FeatureDoubleTapToWake:
		value := "OFF"
		if enabled {
			value = "AUTO"
		}
		if err := sysfs.WriteString(h.wakeGesturePath, value); err != nil {
			h.sysfsLog.Error("set wake gesture", "err", err)
			return
		}
		h.sysfsLog.Debug("set wake gesture", "value", value)
	default:
		h.log.Warn("feature does not exist", "feature", int32(f))
	}
}

// GetFeature returns the value of a queryable feature, or -1.
func (h *HAL) GetFeature(f Feature) int {
	if f == FeatureSupportedProfiles {
		return supportedProfiles
	}
	return -1
}

// WakeGesture returns the current double tap to wake mode written in sysfs.
func (h *HAL) WakeGesture() (string, error) {
	return sysfs.ReadString(h.wakeGesturePath)
}

// PlatformLowPowerStats returns the XO_shutdown and VMIN sleep states.
func (h *HAL) PlatformLowPowerStats() ([]collector.SleepState, error) {
	states, err := h.stats.Collect()
	if err != nil {
		metrics.StatsErrorsTotal.Inc()
		h.log.Error("failed to collect platform stats", "err", err)
		return nil, err
	}
	metrics.ObserveSleepStates(states)
	return states, nil
}

// NumPlatformModes returns how many sleep states PlatformLowPowerStats reports.
func (h *HAL) NumPlatformModes() int {
	return h.stats.NumPlatformModes()
}

// VoterList returns the voter count of each sleep state.
func (h *HAL) VoterList() []int {
	return h.stats.VoterList()
}
