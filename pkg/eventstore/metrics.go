package eventstore

import "github.com/prometheus/client_golang/prometheus"

var (
	appendConflictsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ledgerevents",
		Subsystem: "eventstore",
		Name:      "append_conflicts_total",
		Help:      "Number of AppendEvents calls rejected by a concurrency conflict.",
	})

	appendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledgerevents",
		Subsystem: "eventstore",
		Name:      "append_duration_seconds",
		Help:      "Time spent in a single AppendEvents call, from transaction begin to commit.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(appendConflictsCounter, appendDuration)
}
