package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PassBuildDuration tracks how long a full .pkpass build takes
	PassBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tapandstamp_pass_build_duration_seconds",
			Help: "Duration of pass bundle builds in seconds",
			Buckets: []float64{
				0.05, // 50ms
				0.1,  // 100ms
				0.25, // 250ms
				0.5,  // 500ms
				1.0,  // 1s
				2.5,  // 2.5s
				5.0,  // 5s
			},
		},
		[]string{"status"}, // success or failure
	)

	// StampEvents counts stamp and claim attempts by outcome
	StampEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapandstamp_stamp_events_total",
			Help: "Stamp and claim attempts by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// PushDeliveries counts wallet update pushes per platform and result
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapandstamp_push_deliveries_total",
			Help: "Wallet update pushes by platform and result",
		},
		[]string{"platform", "result"},
	)
)

// RecordPassBuild records the duration of a pass build
func RecordPassBuild(status string, duration float64) {
	PassBuildDuration.WithLabelValues(status).Observe(duration)
}

func RecordStampEvent(action, outcome string) {
	StampEvents.WithLabelValues(action, outcome).Inc()
}

func RecordPushes(platform string, sent, failed int) {
	PushDeliveries.WithLabelValues(platform, "sent").Add(float64(sent))
	PushDeliveries.WithLabelValues(platform, "failed").Add(float64(failed))
}
