package scene

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_bvh_rebuilds",
		Help: "The number of acceleration structure rebuilds.",
	})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scene_bvh_rebuild_seconds",
		Help:    "The time spent rebuilding the acceleration structure.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)
