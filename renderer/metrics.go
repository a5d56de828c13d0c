package renderer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renderer_frames",
		Help: "The number of rendered frames.",
	})

	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "renderer_frame_seconds",
		Help:    "The time spent rendering all views of a frame.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	castRays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renderer_rays",
		Help: "The number of rays cast by all tracers.",
	})

	activeViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "renderer_views",
		Help: "The number of views attached to renderers.",
	})
)
