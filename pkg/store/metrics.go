package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// metrics holds the Prometheus collectors a Store reports through. They are
// package-level so multiple Store instances in one process share a single
// registration; a "dir" label distinguishes them in exported series. There
// is no HTTP server here — it is up to the embedding application to expose
// prometheus.DefaultGatherer on whatever mux it runs.
var (
	opsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventkv_store_operations_total",
			Help: "Total number of store operations by kind and outcome.",
		},
		[]string{"dir", "op", "status"},
	)

	opDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventkv_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dir", "op"},
	)

	keysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventkv_store_keys_total",
			Help: "Number of live keys held in memory.",
		},
		[]string{"dir"},
	)

	generationGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventkv_store_generation",
			Help: "Current generation number.",
		},
		[]string{"dir"},
	)

	framesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventkv_store_frames_written_total",
			Help: "Total number of frames appended to event logs or snapshots.",
		},
		[]string{"dir", "kind"},
	)

	corruptionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventkv_store_corruption_events_total",
			Help: "Total number of corrupted files detected during load.",
		},
		[]string{"dir"},
	)
)

func recordOp(dir, op string, success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	opsTotal.WithLabelValues(dir, op, status).Inc()
}

// observeDuration reports how long op took against start. Called via
// defer at the top of the exported methods slow enough to be worth timing
// (Save, Load) rather than every map access.
func observeDuration(dir, op string, start time.Time) {
	opDuration.WithLabelValues(dir, op).Observe(time.Since(start).Seconds())
}
