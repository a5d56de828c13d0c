package accumulation

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/log"
	"github.com/scenelab/scenelab/types"
)

const (
	// Pose components closer than this to the last recorded pose do not
	// invalidate accumulated samples.
	PoseEpsilon float32 = 1e-4

	// Resolution used when a view is created with a non-positive size.
	DefaultWidth  = 512
	DefaultHeight = 512

	// Resolution used when the requested one cannot be allocated.
	MinSafeWidth  = 64
	MinSafeHeight = 64
)

// Pose is a camera position plus its rotation in degrees (pitch, yaw, roll).
type Pose struct {
	Position types.Vec3
	Rotation types.Vec3
}

// Moved reports whether either component of p differs from other by more
// than PoseEpsilon. Position and rotation are compared independently.
func (p Pose) Moved(other Pose) bool {
	return p.Position.Sub(other.Position).Len() > PoseEpsilon ||
		p.Rotation.Sub(other.Rotation).Len() > PoseEpsilon
}

// View holds the progressive accumulation state of a single render target.
//
// Each frame blends a new sample into the back buffer using the running
// average back = front + (sample - front) / (frame + 1) and then swaps the
// buffers so the result becomes the front buffer. The sequence restarts
// whenever the camera pose moves.
type View struct {
	logger log.Logger
	alloc  Allocator

	// Ping-pong buffers; buffers[front] holds the latest average.
	buffers [2]*Buffer
	front   int

	frame uint32

	hasPose  bool
	lastPose Pose
	resets   uint64

	// The resolution asked for by the last successful allocation. It differs
	// from the buffer size after a fallback.
	requestedW int
	requestedH int
}

// NewView allocates the accumulation buffers for a width x height target.
// Non-positive sizes select DefaultWidth x DefaultHeight. If the allocator
// cannot satisfy the request the view falls back to the minimum safe
// resolution and only fails if that allocation fails as well.
func NewView(width, height int, alloc Allocator) (*View, error) {
	if alloc == nil {
		alloc = &HeapAllocator{}
	}

	v := &View{
		logger: log.New("accumulation"),
		alloc:  alloc,
	}

	if err := v.allocate(width, height); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) allocate(width, height int) error {
	if width <= 0 || height <= 0 {
		v.logger.Warningf("invalid view resolution %dx%d; using %dx%d", width, height, DefaultWidth, DefaultHeight)
		width, height = DefaultWidth, DefaultHeight
	}

	err := v.allocatePair(width, height)
	if err == nil {
		v.requestedW, v.requestedH = width, height
		return nil
	}

	allocationFailures.WithLabelValues(errors.Type(err)).Inc()
	if width == MinSafeWidth && height == MinSafeHeight {
		return err
	}

	v.logger.Warningf(
		"could not allocate %dx%d accumulation buffers (%v); falling back to %dx%d",
		width, height, err, MinSafeWidth, MinSafeHeight,
	)
	if fallbackErr := v.allocatePair(MinSafeWidth, MinSafeHeight); fallbackErr != nil {
		allocationFailures.WithLabelValues(errors.Type(fallbackErr)).Inc()
		return errors.New("could not allocate accumulation buffers").
			WithType(errors.Type(fallbackErr)).
			WithTag("width", width).
			WithTag("height", height).
			Wrap(fallbackErr)
	}
	v.requestedW, v.requestedH = width, height
	return nil
}

// Allocate both buffers or none.
func (v *View) allocatePair(width, height int) error {
	var pair [2]*Buffer
	for idx := range pair {
		buf, err := v.alloc.Allocate(width, height)
		if err != nil {
			if idx == 1 {
				v.alloc.Release(pair[0])
			}
			return err
		}
		pair[idx] = buf
	}

	v.buffers = pair
	v.front = 0
	v.hasPose = false
	v.frame = 0
	return nil
}

func (v *View) release() {
	for idx, buf := range v.buffers {
		if buf != nil {
			v.alloc.Release(buf)
			v.buffers[idx] = nil
		}
	}
}

// Close releases both buffers. Calling Close more than once is a no-op.
func (v *View) Close() {
	v.release()
}

// Resize reallocates the buffers for a new resolution and restarts
// accumulation. Resizing to the current resolution, or to the resolution
// that was requested before a fallback, does nothing. If no buffers can be
// allocated for the new resolution the view keeps its previous resolution
// and an error is returned.
func (v *View) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	if v.buffers[0] != nil {
		curW, curH := v.Resolution()
		if (width == curW && height == curH) || (width == v.requestedW && height == v.requestedH) {
			return nil
		}
	}

	prevW, prevH := v.Resolution()
	prevReqW, prevReqH := v.requestedW, v.requestedH
	v.release()
	err := v.allocate(width, height)
	if err == nil || prevW == 0 {
		return err
	}

	if restoreErr := v.allocatePair(prevW, prevH); restoreErr != nil {
		v.logger.Errorf("could not restore %dx%d accumulation buffers: %v", prevW, prevH, restoreErr)
		return err
	}
	v.requestedW, v.requestedH = prevReqW, prevReqH
	return err
}

// Resolution returns the size of the accumulation buffers.
func (v *View) Resolution() (width, height int) {
	if v.buffers[0] == nil {
		return 0, 0
	}
	return v.buffers[0].Width, v.buffers[0].Height
}

// Frame returns the number of samples blended since the last reset.
func (v *View) Frame() uint32 {
	return v.frame
}

// Resets returns the number of times accumulation was restarted.
func (v *View) Resets() uint64 {
	return v.resets
}

// Front returns the buffer holding the current running average.
func (v *View) Front() *Buffer {
	return v.buffers[v.front]
}

// LastPose returns the pose recorded by the last accumulated frame.
func (v *View) LastPose() (Pose, bool) {
	return v.lastPose, v.hasPose
}

// ShouldReset reports whether accumulating with pose would discard the
// samples gathered so far.
func (v *View) ShouldReset(pose Pose) bool {
	return !v.hasPose || pose.Moved(v.lastPose)
}

// Reset clears both buffers, zeroes the frame counter and records pose.
func (v *View) Reset(pose Pose) {
	for _, buf := range v.buffers {
		buf.Clear()
	}
	v.frame = 0
	v.front = 0
	v.lastPose = pose
	v.hasPose = true
	v.resets++
	accumulationResets.Inc()
}

// Accumulate blends sample into the running average for pose and returns
// the buffer to display. A pose that moved since the previous frame restarts
// the sequence first, so the returned buffer then equals sample.
func (v *View) Accumulate(pose Pose, sample *Buffer) (*Buffer, error) {
	if v.buffers[0] == nil {
		return nil, errors.New("accumulation view is closed").WithType(ErrTypeInvalidResolution)
	}
	if sample == nil {
		return nil, errors.New("missing sample buffer").WithType(ErrTypeSampleMismatch)
	}
	if !sample.SameSize(v.buffers[0]) {
		return nil, errors.New("sample size does not match the view").
			WithType(ErrTypeSampleMismatch).
			WithTag("sample", [2]int{sample.Width, sample.Height}).
			WithTag("view", [2]int{v.buffers[0].Width, v.buffers[0].Height})
	}

	if v.ShouldReset(pose) {
		v.Reset(pose)
	}

	front := v.buffers[v.front]
	back := v.buffers[1-v.front]
	weight := 1 / float32(v.frame+1)
	for idx, s := range sample.Pix {
		prev := front.Pix[idx]
		back.Pix[idx] = prev.Add(s.Sub(prev).Mul(weight))
	}

	v.front = 1 - v.front
	v.frame++
	v.lastPose = pose
	accumulatedFrames.Inc()

	return back, nil
}
