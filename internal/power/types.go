package power

import "strconv"

// Hint is a power hint from the power manager.
type Hint int32

const (
	HintVsync       Hint = 0x01
	HintInteraction Hint = 0x02
	HintVideoEncode Hint = 0x03
	HintVideoDecode Hint = 0x04
	HintLowPower    Hint = 0x05
	HintLaunch      Hint = 0x08
	HintSetProfile  Hint = 0x111
)

var hintNames = map[Hint]string{
	HintVsync:       "vsync",
	HintInteraction: "interaction",
	HintVideoEncode: "video_encode",
	HintVideoDecode: "video_decode",
	HintLowPower:    "low_power",
	HintLaunch:      "launch",
	HintSetProfile:  "set_profile",
}

func (h Hint) String() string {
	if name, ok := hintNames[h]; ok {
		return name
	}
	return "hint_" + strconv.Itoa(int(h))
}

// ParseHint returns the hint with the given name, as printed by Hint.String.
func ParseHint(name string) (Hint, bool) {
	for h, n := range hintNames {
		if n == name {
			return h, true
		}
	}
	return 0, false
}

// Profile is a power profile selected by the user.
type Profile int32

const (
	ProfilePowerSave Profile = iota
	ProfileBalanced
	ProfileHighPerformance
)

// supportedProfiles is the number of profiles reported through FeatureSupportedProfiles.
const supportedProfiles = 3

func (p Profile) String() string {
	switch p {
	case ProfilePowerSave:
		return "power_save"
	case ProfileBalanced:
		return "balanced"
	case ProfileHighPerformance:
		return "high_performance"
	}
	return "profile_" + strconv.Itoa(int(p))
}

// ParseProfile returns the profile with the given name, as printed by
// Profile.String. Profile numbers are accepted too.
func ParseProfile(name string) (Profile, bool) {
	for _, p := range []Profile{ProfilePowerSave, ProfileBalanced, ProfileHighPerformance} {
		if p.String() == name {
			return p, true
		}
	}
	n, err := strconv.ParseInt(name, 10, 32)
	if err != nil {
		return 0, false
	}
	return Profile(n), true
}

// Feature is a device feature that can be switched or queried.
type Feature int32

const (
	FeatureDoubleTapToWake   Feature = 0x0001
	FeatureSupportedProfiles Feature = 0x1000
)

// ModuleInfo describes the HAL module.
type ModuleInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Author           string `json:"author"`
	ModuleAPIVersion string `json:"module_api_version"`
	HALAPIVersion    string `json:"hal_api_version"`
}

// ModuleID is the identifier a caller passes to Open.
const ModuleID = "power"

// Module is the registration metadata of this HAL.
var Module = ModuleInfo{
	ID:               ModuleID,
	Name:             "Shamu Power HAL",
	Author:           "The Android Open Source Project",
	ModuleAPIVersion: "0.5",
	HALAPIVersion:    "1.0",
}
