package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matrixmirror",
			Subsystem: "sync",
			Name:      "requests_total",
			Help:      "Total number of sync requests by outcome",
		},
		[]string{"outcome"},
	)
	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "matrixmirror",
			Subsystem: "sync",
			Name:      "request_duration_seconds",
			Help:      "Duration of successful sync requests",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
	eventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matrixmirror",
			Subsystem: "events",
			Name:      "processed_total",
			Help:      "Total number of events folded into the mirror by kind",
		},
		[]string{"kind"},
	)
	eventsDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "matrixmirror",
			Subsystem: "events",
			Name:      "duplicate_total",
			Help:      "Total number of redelivered events that were skipped",
		},
	)
)

func init() {
	prometheus.MustRegister(syncRequests, syncDuration, eventsProcessed, eventsDuplicate)
}
