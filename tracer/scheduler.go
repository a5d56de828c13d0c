package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign them to the
	// tracers, which then process them one after the other.
	//
	// This function returns the block height assignment for each tracer
	// in the input list. The assignments always add up to frameH.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits frames proportionally to each tracer's speed
// estimate.
type naiveScheduler struct{}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return naiveScheduler{}
}

func (naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = float64(tr.SpeedEstimate())
	}
	return distributeRows(weights, frameH)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// When previous frame statistics are available the scheduler uses the
// following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
//
// The first call, a change in the number of tracers or missing timings fall
// back to the speed estimates.
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = NaiveScheduler().Schedule(tracers, frameH)
		return sch.blockAssignment
	}

	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		stats := tr.Stats()
		if stats.BlockTime <= 0 || stats.BlockH == 0 {
			sch.blockAssignment = NaiveScheduler().Schedule(tracers, frameH)
			return sch.blockAssignment
		}
		weights[idx] = float64(stats.BlockH) / float64(stats.BlockTime)
	}

	sch.blockAssignment = distributeRows(weights, frameH)
	return sch.blockAssignment
}

// Split frameH rows proportionally to weights. Every tracer gets at least one
// row while rows remain; rounding leftovers go to the first tracer.
func distributeRows(weights []float64, frameH uint32) []uint32 {
	rows := make([]uint32, len(weights))
	if len(weights) == 0 {
		return rows
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		for idx := range weights {
			weights[idx] = 1
		}
		total = float64(len(weights))
	}

	scaler := float64(frameH) / total
	var scheduled uint32
	for idx, w := range weights {
		rows[idx] = uint32(math.Max(1.0, math.Floor(w*scaler)))
		scheduled += rows[idx]
	}

	// Too many tracers for the frame height; take rows back from the end.
	for idx := len(rows) - 1; scheduled > frameH && idx >= 0; idx-- {
		take := min(rows[idx], scheduled-frameH)
		rows[idx] -= take
		scheduled -= take
	}

	rows[0] += frameH - scheduled
	return rows
}
