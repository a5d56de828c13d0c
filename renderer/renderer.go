package renderer

import (
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/accumulation"
	"github.com/scenelab/scenelab/log"
	"github.com/scenelab/scenelab/scene"
	"github.com/scenelab/scenelab/tracer"
)

type Renderer interface {
	// Render a frame for every view.
	Render() error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

// A render target bound to a camera.
type view struct {
	cameraID int
	accum    *accumulation.View

	// Receives the samples of the frame in progress.
	sample *accumulation.Buffer
}

// The default renderer renders frames sequentially. Each frame consists of
// BeginFrame, which picks up scene edits, RenderAllViews, which traces and
// accumulates a sample for every view, and EndFrame.
type defaultRenderer struct {
	logger log.Logger

	options Options

	scene   *scene.Scene
	cameras *scene.Cameras

	tracers          []tracer.Tracer
	scheduler        tracer.BlockScheduler
	blockAssignments []uint32

	alloc accumulation.Allocator
	views map[int]*view

	snapshot   *scene.Snapshot
	inFrame    bool
	frameStart time.Time
	frameCount uint32
	frameStats FrameStats
}

// Create a new default renderer that draws the cameras of sc using cpu
// tracers. No views are attached; use CreateView to add them.
func NewDefault(sc *scene.Scene, cameras *scene.Cameras, opts Options) (*defaultRenderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	scheduler, err := opts.BlockScheduler()
	if err != nil {
		return nil, err
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		options:   opts,
		scene:     sc,
		cameras:   cameras,
		scheduler: scheduler,
		alloc:     &accumulation.HeapAllocator{MaxPixels: opts.MaxBufferPixels},
		views:     make(map[int]*view),
	}

	for idx := 0; idx < opts.Tracers; idx++ {
		r.tracers = append(r.tracers, tracer.NewCPU(tracerID(idx)))
	}
	if len(r.tracers) == 0 {
		return nil, errNoTracers()
	}
	return r, nil
}

func tracerID(idx int) string {
	return fmt.Sprintf("cpu-%d", idx)
}

// Shutdown renderer and release all views.
func (r *defaultRenderer) Close() {
	for id := range r.views {
		r.DestroyView(id)
	}
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// CreateView attaches a render target of width x height pixels to a camera.
// The resolution may be lowered if the accumulation buffers cannot be
// allocated; non-positive sizes select the default resolution.
func (r *defaultRenderer) CreateView(cameraID, width, height int) error {
	if _, ok := r.cameras.Get(cameraID); !ok {
		return errors.New("renderer: camera not found").
			WithType(scene.ErrTypeUnknownCamera).
			WithTag("camera", cameraID)
	}
	if _, exists := r.views[cameraID]; exists {
		return r.ResizeView(cameraID, width, height)
	}

	accum, err := accumulation.NewView(width, height, r.alloc)
	if err != nil {
		return err
	}

	v := &view{cameraID: cameraID, accum: accum}
	v.syncSampleBuffer()
	r.views[cameraID] = v
	activeViews.Inc()

	w, h := accum.Resolution()
	r.logger.Infof("created %dx%d view for camera %d", w, h, cameraID)
	return nil
}

// DestroyView releases the view bound to a camera.
func (r *defaultRenderer) DestroyView(cameraID int) {
	v, ok := r.views[cameraID]
	if !ok {
		return
	}
	v.accum.Close()
	delete(r.views, cameraID)
	activeViews.Dec()
}

// ResizeView changes the resolution of a view. Accumulation restarts.
func (r *defaultRenderer) ResizeView(cameraID, width, height int) error {
	v, ok := r.views[cameraID]
	if !ok {
		return errUnknownView(cameraID)
	}
	if err := v.accum.Resize(width, height); err != nil {
		return err
	}
	v.syncSampleBuffer()
	return nil
}

// View returns the accumulation state of the view bound to a camera.
func (r *defaultRenderer) View(cameraID int) (*accumulation.View, bool) {
	v, ok := r.views[cameraID]
	if !ok {
		return nil, false
	}
	return v.accum, true
}

// Frame returns the tone mapped accumulated image of a view.
func (r *defaultRenderer) Frame(cameraID int) (*image.RGBA, error) {
	v, ok := r.views[cameraID]
	if !ok {
		return nil, errUnknownView(cameraID)
	}
	return ToneMap(v.accum.Front(), r.options.Exposure), nil
}

func (v *view) syncSampleBuffer() {
	w, h := v.accum.Resolution()
	if v.sample == nil || v.sample.Width != w || v.sample.Height != h {
		v.sample = accumulation.NewBuffer(w, h)
	}
}

// BeginFrame starts a new frame. If the scene was edited, its acceleration
// structure is rebuilt before any ray is traced and the new snapshot is
// queued for every tracer.
func (r *defaultRenderer) BeginFrame() error {
	if r.inFrame {
		return errFrameState("frame already in progress")
	}
	if len(r.tracers) == 0 {
		return errNoTracers()
	}

	r.inFrame = true
	r.frameStart = time.Now()
	r.frameStats = FrameStats{}

	snapshot := r.scene.Snapshot()
	if snapshot != r.snapshot {
		r.snapshot = snapshot
		for _, tr := range r.tracers {
			tr.AppendChange(tracer.SetScene, snapshot)
		}
	}
	r.frameStats.SceneVersion = snapshot.Version
	return nil
}

// RenderAllViews traces one sample per view and blends it into the view's
// accumulation buffers. Views whose camera was destroyed are released.
func (r *defaultRenderer) RenderAllViews() error {
	ids := make([]int, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return r.RenderViews(ids...)
}

// RenderViews is like RenderAllViews but only traces the views bound to the
// given cameras. The remaining views keep their accumulated samples.
func (r *defaultRenderer) RenderViews(cameraIDs ...int) error {
	if !r.inFrame {
		return errFrameState("views rendered outside of a frame")
	}

	for _, id := range cameraIDs {
		v, ok := r.views[id]
		if !ok {
			return errUnknownView(id)
		}

		cam, ok := r.cameras.Get(id)
		if !ok {
			r.logger.Noticef("camera %d was destroyed; releasing its view", id)
			r.DestroyView(id)
			continue
		}

		stat, err := r.renderView(v, cam)
		if err != nil {
			return err
		}
		r.frameStats.Views = append(r.frameStats.Views, stat)
	}
	return nil
}

// Converged reports whether the view bound to a camera holds MaxFrames
// samples for the current camera pose, so tracing it again is not needed.
// A moved camera is never converged.
func (r *defaultRenderer) Converged(cameraID int) bool {
	if r.options.MaxFrames == 0 {
		return false
	}
	v, ok := r.views[cameraID]
	if !ok {
		return false
	}
	cam, ok := r.cameras.Get(cameraID)
	if !ok {
		return false
	}

	pose := accumulation.Pose{Position: cam.Position, Rotation: cam.Rotation}
	return v.accum.Frame() >= r.options.MaxFrames && !v.accum.ShouldReset(pose)
}

func (r *defaultRenderer) renderView(v *view, cam *scene.Camera) (ViewStat, error) {
	start := time.Now()
	v.syncSampleBuffer()
	frameH := uint32(v.sample.Height)

	r.blockAssignments = r.scheduler.Schedule(r.tracers, frameH)
	stat := ViewStat{CameraID: v.cameraID}

	var blockY uint32
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if err := tr.Setup(v.sample); err != nil {
			return stat, err
		}
		tr.AppendChange(tracer.UpdateCamera, *cam)
		if err := tr.ApplyPendingChanges(); err != nil {
			return stat, err
		}
		if blockH == 0 {
			continue
		}

		err := tr.Trace(tracer.BlockRequest{
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			Seed:            r.seed(v, idx),
			FrameCount:      v.accum.Frame(),
		})
		if err != nil {
			return stat, err
		}
		blockY += blockH

		trStats := tr.Stats()
		castRays.Add(float64(trStats.Rays))
		stat.Tracers = append(stat.Tracers, TracerStat{
			Id:           tr.Id(),
			BlockH:       blockH,
			FramePercent: 100 * float32(blockH) / float32(frameH),
			RenderTime:   time.Duration(trStats.BlockTime),
			Rays:         trStats.Rays,
		})
	}

	pose := accumulation.Pose{Position: cam.Position, Rotation: cam.Rotation}
	if _, err := v.accum.Accumulate(pose, v.sample); err != nil {
		return stat, err
	}

	stat.Width, stat.Height = v.accum.Resolution()
	stat.Frame = v.accum.Frame()
	stat.Resets = v.accum.Resets()
	stat.RenderTime = time.Since(start)
	return stat, nil
}

// Every (frame, view, tracer) triple gets its own random sequence.
func (r *defaultRenderer) seed(v *view, tracerIndex int) uint32 {
	return r.frameCount*2654435761 ^ uint32(v.cameraID)*40503 ^ uint32(tracerIndex)*9973
}

// EndFrame completes the current frame and records its statistics.
func (r *defaultRenderer) EndFrame() error {
	if !r.inFrame {
		return errFrameState("EndFrame called outside of a frame")
	}
	r.inFrame = false
	r.frameCount++

	r.frameStats.RenderTime = time.Since(r.frameStart)
	renderedFrames.Inc()
	frameDuration.Observe(r.frameStats.RenderTime.Seconds())
	return nil
}

// Render a frame for every view.
func (r *defaultRenderer) Render() error {
	return r.renderFrame(r.RenderAllViews)
}

// RenderView renders a frame that only traces the view bound to a camera.
func (r *defaultRenderer) RenderView(cameraID int) error {
	return r.renderFrame(func() error {
		return r.RenderViews(cameraID)
	})
}

func (r *defaultRenderer) renderFrame(renderViews func() error) error {
	if err := r.BeginFrame(); err != nil {
		return err
	}
	if err := renderViews(); err != nil {
		r.inFrame = false
		return err
	}
	return r.EndFrame()
}

// Get render statistics for the last frame.
func (r *defaultRenderer) Stats() FrameStats {
	return r.frameStats
}
