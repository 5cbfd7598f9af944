package collector

const (
	// PlatformSleepModes is the number of sleep states reported by PlatformStats.
	PlatformSleepModes = 2

	xoVoters   = 3
	vminVoters = 0

	// rpmCounters is how many catalog entries come from the decimal rpm_stats file.
	rpmCounters = 4
)

// Default debugfs locations of the RPM statistics.
const (
	DefaultRPMStatsPath       = "/d/rpm_stats"
	DefaultRPMMasterStatsPath = "/d/rpm_master_stats"
)

var xoVoterNames = [xoVoters]string{"APSS", "MPSS", "LPASS"}

// PlatformStats reports XO shutdown and VMIN residency from the RPM stats files.
type PlatformStats struct {
	rpm    StatsSource
	master StatsSource
}

// NewPlatformStats creates a PlatformStats reading the given rpm_stats and
// rpm_master_stats files.
func NewPlatformStats(rpmPath, masterPath string) *PlatformStats {
	return &PlatformStats{
		rpm:    StatsSource{Path: rpmPath, Encoding: Decimal},
		master: StatsSource{Path: masterPath, Encoding: Hex},
	}
}

// Collect reads both stats files and returns the XO_shutdown and VMIN states,
// in that order. If either file cannot be opened no states are returned.
func (p *PlatformStats) Collect() ([]SleepState, error) {
	stats := make([]uint64, len(CounterNames))

	if err := ExtractStats(stats, p.rpm, rpmCounters, 0); err != nil {
		return nil, err
	}
	if err := ExtractStats(stats, p.master, len(CounterNames)-rpmCounters, rpmCounters); err != nil {
		return nil, err
	}

	xo := SleepState{
		Name:                 "XO_shutdown",
		TotalTransitions:     stats[0],
		ResidencyMsSinceBoot: stats[1],
		Voters:               make([]Voter, xoVoters),
	}
	for i, name := range xoVoterNames {
		xo.Voters[i] = Voter{
			Name:            name,
			TimeVotedMs:     stats[rpmCounters+2*i],
			TimesVotedCount: stats[rpmCounters+2*i+1],
		}
	}

	vmin := SleepState{
		Name:                 "VMIN",
		TotalTransitions:     stats[2],
		ResidencyMsSinceBoot: stats[3],
		Voters:               []Voter{},
	}

	return []SleepState{xo, vmin}, nil
}

// NumPlatformModes returns the number of sleep states Collect reports.
func (p *PlatformStats) NumPlatformModes() int {
	return PlatformSleepModes
}

// VoterList returns the number of voters of each sleep state, in Collect order.
func (p *PlatformStats) VoterList() []int {
	return []int{xoVoters, vminVoters}
}
