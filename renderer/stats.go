package renderer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block
	RenderTime time.Duration

	// Rays cast for the assigned block.
	Rays uint64
}

type ViewStat struct {
	// The camera rendered by this view.
	CameraID int

	// Accumulation buffer resolution.
	Width  int
	Height int

	// Samples blended since the last reset and the number of resets.
	Frame  uint32
	Resets uint64

	// Per tracer stats for this view.
	Tracers []TracerStat

	// Render time for this view.
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual view stats.
	Views []ViewStat

	// Version of the scene snapshot used for this frame.
	SceneVersion uint64

	// Total render time for entire frame.
	RenderTime time.Duration
}
