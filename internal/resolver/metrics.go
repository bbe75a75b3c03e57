package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("capscan.resolver")

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capscan_resolutions_total",
			Help: "Dependency resolutions by outcome (built, cached, failed).",
		},
		[]string{"result"},
	)

	resolutionSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capscan_resolution_duration_seconds",
			Help:    "Time spent building a resolution for a model set.",
			Buckets: prometheus.DefBuckets,
		},
	)

	resolvedFunctors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "capscan_resolved_functors",
			Help: "Number of functors selected by the active resolution.",
		},
	)
)
