package collector

// SleepState holds residency statistics for one platform low-power mode.
type SleepState struct {
	Name                   string  `json:"name"`
	TotalTransitions       uint64  `json:"total_transitions"`
	ResidencyMsSinceBoot   uint64  `json:"residency_in_msec_since_boot"`
	SupportedOnlyInSuspend bool    `json:"supported_only_in_suspend"`
	Voters                 []Voter `json:"voters"`
}

// Voter holds one subsystem's votes for keeping a sleep state's resource powered.
type Voter struct {
	Name            string `json:"name"`
	TimeVotedMs     uint64 `json:"total_time_in_msec_voted_for_since_boot"`
	TimesVotedCount uint64 `json:"total_number_of_times_voted_since_boot"`
}

// PlatformSnapshot is a timestamped set of sleep states as stored in history.
type PlatformSnapshot struct {
	Timestamp int64        `json:"timestamp"`
	States    []SleepState `json:"states"`
}
