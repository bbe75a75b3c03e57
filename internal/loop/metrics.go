package loop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("capscan.loop")

var (
	iterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capscan_loop_iterations_total",
		Help: "Loop iterations by outcome.",
	}, []string{"outcome"})

	wrapupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capscan_loop_wrapups_total",
		Help: "Subsystems that ended before max_iterations, by reason.",
	}, []string{"reason"})

	runSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capscan_loop_run_duration_seconds",
		Help:    "Wall time of one loop manager run.",
		Buckets: prometheus.DefBuckets,
	})
)
