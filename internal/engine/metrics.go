package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedsvc_jobs_submitted_total",
			Help: "Total number of jobs admitted to the backlog.",
		},
	)

	jobsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sedsvc_jobs_rejected_total",
			Help: "Total number of submissions rejected because the backlog was full.",
		},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sedsvc_jobs_processed_total",
			Help: "Total number of jobs processed, by terminal status.",
		},
		[]string{"status"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sedsvc_queue_depth",
			Help: "Number of admitted jobs waiting for a worker.",
		},
	)

	transformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sedsvc_transform_duration_seconds",
			Help:    "Transformation execution time in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted)
	prometheus.MustRegister(jobsRejected)
	prometheus.MustRegister(jobsProcessed)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(transformDuration)
}
