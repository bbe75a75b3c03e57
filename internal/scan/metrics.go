package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("capscan.scan")

var (
	pointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capscan_points_total",
		Help: "Evaluated points by validity.",
	}, []string{"result"})

	warningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capscan_point_warnings_total",
		Help: "Warnings raised while evaluating points.",
	})

	pointSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capscan_point_duration_seconds",
		Help:    "Wall time of one point evaluation.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	})

	invalidStreak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capscan_invalid_streak",
		Help: "Current number of consecutive invalid points.",
	})
)
