// Package metrics provides Prometheus metrics for the power HAL daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
)

const namespace = "power_hal"

// HintsTotal counts power hints received, by hint name.
var HintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "hints_total",
	Help:      "Total power hints received.",
}, []string{"hint"})

// GovernorRequestsTotal counts requests sent to the governor socket, by opcode.
var GovernorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "governor_requests_total",
	Help:      "Total requests sent to the CPU governor.",
}, []string{"op"})

// Profile is the current power profile number.
var Profile = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "profile",
	Help:      "Current power profile (0 power save, 1 balanced, 2 high performance).",
})

// Interactive is 1 while the device is interactive.
var Interactive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "interactive",
	Help:      "Whether the device is interactive.",
})

// StatsErrorsTotal counts failed platform stats collections.
var StatsErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "stats_errors_total",
	Help:      "Total failed platform low power stats collections.",
})

var sleepTransitions = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "sleep_state_transitions",
	Help:      "Transitions into a platform sleep state since boot.",
}, []string{"state"})

var sleepResidency = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "sleep_state_residency_milliseconds",
	Help:      "Time spent in a platform sleep state since boot.",
}, []string{"state"})

var voterTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "sleep_state_voter_time_milliseconds",
	Help:      "Time a voter voted for a platform sleep state since boot.",
}, []string{"state", "voter"})

var voterCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "sleep_state_voter_votes",
	Help:      "Number of votes a voter cast for a platform sleep state since boot.",
}, []string{"state", "voter"})

// ObserveSleepStates sets the sleep state gauges from a collection.
func ObserveSleepStates(states []collector.SleepState) {
	for _, s := range states {
		sleepTransitions.WithLabelValues(s.Name).Set(float64(s.TotalTransitions))
		sleepResidency.WithLabelValues(s.Name).Set(float64(s.ResidencyMsSinceBoot))
		for _, v := range s.Voters {
			voterTime.WithLabelValues(s.Name, v.Name).Set(float64(v.TimeVotedMs))
			voterCount.WithLabelValues(s.Name, v.Name).Set(float64(v.TimesVotedCount))
		}
	}
}
