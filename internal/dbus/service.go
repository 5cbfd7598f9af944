package dbus

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
	"github.com/cptspacemanspiff/shamu-power/internal/power"
	"github.com/cptspacemanspiff/shamu-power/internal/storage"
)

const (
	BusName   = "com.android.hardware.Power"
	ObjPath   = "/com/android/hardware/Power"
	IfaceName = "com.android.hardware.Power"
)

// maxHistoryRange bounds history queries to one year.
const maxHistoryRange = 365 * 24 * 60 * 60

const introspectXML = `
<node>
  <interface name="` + IfaceName + `">
    <method name="PowerHint">
      <arg direction="in" type="i" name="hint"/>
      <arg direction="in" type="s" name="data"/>
    </method>
    <method name="SetInteractive">
      <arg direction="in" type="b" name="on"/>
    </method>
    <method name="SetProfile">
      <arg direction="in" type="i" name="profile"/>
    </method>
    <method name="GetProfile">
      <arg direction="out" type="i" name="profile"/>
    </method>
    <method name="SetFeature">
      <arg direction="in" type="i" name="feature"/>
      <arg direction="in" type="b" name="enabled"/>
    </method>
    <method name="GetFeature">
      <arg direction="in" type="i" name="feature"/>
      <arg direction="out" type="i" name="value"/>
    </method>
    <method name="GetWakeGesture">
      <arg direction="out" type="s" name="mode"/>
    </method>
    <method name="GetModuleInfo">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetPlatformLowPowerStats">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetNumberOfPlatformModes">
      <arg direction="out" type="i" name="modes"/>
    </method>
    <method name="GetVoterList">
      <arg direction="out" type="ai" name="voters"/>
    </method>
    <method name="GetStatsHistory">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetHintHistory">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// Service exposes the power HAL over D-Bus. Calls are serialized, since the
// HAL itself is single threaded.
type Service struct {
	mu    sync.Mutex
	hal   *power.HAL
	store *storage.DB
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a new D-Bus service.
func NewService(hal *power.HAL, store *storage.DB, logger *slog.Logger) *Service {
	return &Service{hal: hal, store: store, log: logger, now: time.Now}
}

// Export registers the service on the system or session bus.
func (s *Service) Export(bus string) (*godbus.Conn, error) {
	conn, err := connect(bus)
	if err != nil {
		return nil, err
	}

	conn.Export(s, ObjPath, IfaceName)
	conn.Export(introspect.Introspectable(introspectXML), ObjPath, "org.freedesktop.DBus.Introspectable")

	reply, err := conn.RequestName(BusName, godbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", BusName)
	}

	return conn, nil
}

// Record collects the platform sleep states and stores them as one snapshot.
func (s *Service) Record() ([]collector.SleepState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.hal.PlatformLowPowerStats()
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertPlatformSnapshot(s.now().Unix(), states); err != nil {
		return states, fmt.Errorf("store snapshot: %w", err)
	}
	return states, nil
}

// PowerHint forwards a hint to the HAL and records it. data is passed as
// bytes, except for set_profile where it holds the decimal profile number.
func (s *Service) PowerHint(hint int32, data string) *godbus.Error {
	h := power.Hint(hint)
	payload, err := hintPayload(h, data)
	if err != nil {
		return godbus.MakeFailedError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hal.PowerHint(h, payload)
	if err := s.store.InsertHintEvent(storage.HintEvent{Timestamp: s.now().Unix(), Hint: h.String(), Data: data}); err != nil {
		s.log.Error("store hint event", "hint", h, "err", err)
	}
	return nil
}

func hintPayload(h power.Hint, data string) ([]byte, error) {
	if h == power.HintSetProfile {
		p, err := strconv.ParseInt(strings.TrimSpace(data), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("set_profile data %q: want a profile number", data)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(p)))
		return buf, nil
	}
	if data == "" {
		return nil, nil
	}
	return []byte(data), nil
}

func (s *Service) SetInteractive(on bool) *godbus.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hal.SetInteractive(on)
	return nil
}

func (s *Service) SetProfile(profile int32) *godbus.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hal.SetProfile(power.Profile(profile))
	return nil
}

func (s *Service) GetProfile() (int32, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int32(s.hal.Profile()), nil
}

func (s *Service) SetFeature(feature int32, enabled bool) *godbus.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hal.SetFeature(power.Feature(feature), enabled)
	return nil
}

func (s *Service) GetFeature(feature int32) (int32, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int32(s.hal.GetFeature(power.Feature(feature))), nil
}

// GetWakeGesture returns the double tap to wake mode currently set in sysfs.
func (s *Service) GetWakeGesture() (string, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode, err := s.hal.WakeGesture()
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return mode, nil
}

func (s *Service) GetModuleInfo() (string, *godbus.Error) {
	return marshal(power.Module)
}

// GetPlatformLowPowerStats returns the current sleep states as JSON.
func (s *Service) GetPlatformLowPowerStats() (string, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.hal.PlatformLowPowerStats()
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(states)
}

func (s *Service) GetNumberOfPlatformModes() (int32, *godbus.Error) {
	return int32(s.hal.NumPlatformModes()), nil
}

func (s *Service) GetVoterList() ([]int32, *godbus.Error) {
	counts := s.hal.VoterList()
	out := make([]int32, len(counts))
	for i, n := range counts {
		out[i] = int32(n)
	}
	return out, nil
}

// GetStatsHistory returns stored snapshots in a time range as JSON.
func (s *Service) GetStatsHistory(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return "", err
	}
	snaps, err := s.store.PlatformSnapshotsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	if snaps == nil {
		snaps = []collector.PlatformSnapshot{}
	}
	return marshal(snaps)
}

// GetHintHistory returns recorded hints in a time range as JSON.
func (s *Service) GetHintHistory(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return "", err
	}
	events, err := s.store.HintEventsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	if events == nil {
		events = []storage.HintEvent{}
	}
	return marshal(events)
}

func validateRange(from, to int64) *godbus.Error {
	switch {
	case from < 0:
		return godbus.MakeFailedError(fmt.Errorf("from_epoch must not be negative, got %d", from))
	case to < from:
		return godbus.MakeFailedError(fmt.Errorf("to_epoch %d is before from_epoch %d", to, from))
	case to-from > maxHistoryRange:
		return godbus.MakeFailedError(fmt.Errorf("range of %ds exceeds %ds", to-from, maxHistoryRange))
	}
	return nil
}

func marshal(v any) (string, *godbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}
