package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ledgerevents",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox rows successfully published and deleted.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ledgerevents",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox rows whose delivery failed and were routed to the DLQ.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledgerevents",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering, and deleting one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	backlogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledgerevents",
		Subsystem: "outbox",
		Name:      "backlog_size",
		Help:      "Number of outbox rows claimed by the most recent poll that claimed any.",
	})

	dlqQuarantinedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledgerevents",
		Subsystem: "dlq",
		Name:      "messages_quarantined_total",
		Help:      "Number of DLQ entries quarantined after exhausting retries.",
	}, []string{"aggregate_type"})

	dlqRequeuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledgerevents",
		Subsystem: "dlq",
		Name:      "messages_requeued_total",
		Help:      "Number of DLQ entries reinserted into the primary outbox for another attempt.",
	}, []string{"aggregate_type"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledgerevents",
		Subsystem: "dlq",
		Name:      "queued_messages",
		Help:      "Current number of DLQ entries awaiting retry (quarantined entries are not counted).",
	})
)

func init() {
	prometheus.MustRegister(
		deliveredCounter,
		failedCounter,
		batchDuration,
		backlogGauge,
		dlqQuarantinedCounter,
		dlqRequeuedCounter,
		dlqBacklogGauge,
	)
}
