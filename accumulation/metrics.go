package accumulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const errTypeLabel = "error_type"

var (
	accumulatedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accumulation_frames",
		Help: "The number of samples blended into accumulation buffers.",
	})

	accumulationResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accumulation_resets",
		Help: "The number of times accumulation restarted because a camera moved.",
	})

	allocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accumulation_allocation_failures",
		Help: "The errors that occured while allocating accumulation buffers.",
	}, []string{
		errTypeLabel,
	})
)
