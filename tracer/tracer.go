package tracer

import (
	"github.com/scenelab/scenelab/accumulation"
)

const (
	// Error types reported by tracers.
	ErrTypeNotReady     = "tracer_not_ready"
	ErrTypeInvalidBlock = "invalid_block"
)

type ChangeType uint8

const (
	// Replace the scene snapshot; the payload is a *scene.Snapshot.
	SetScene ChangeType = iota

	// Replace the camera; the payload is a scene.Camera value.
	UpdateCamera
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// A random seed value for the tracer's random number generator.
	Seed uint32

	// Number of sequential rendered frames from current camera position.
	FrameCount uint32
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block (in nanoseconds)
	BlockTime int64

	// The number of rays cast while rendering this block.
	Rays uint64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (cpu) implementation.
	SpeedEstimate() float32

	// Attach the buffer that receives traced samples.
	Setup(target *accumulation.Buffer) error

	// Process a block request. The call returns once the block rows in the
	// target buffer have been overwritten with fresh samples.
	Trace(BlockRequest) error

	// Append a change to the tracer's update buffer.
	AppendChange(ChangeType, interface{})

	// Apply all pending changes from the update buffer.
	ApplyPendingChanges() error

	// Retrieve last block statistics.
	Stats() *Stats
}
