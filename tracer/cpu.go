package tracer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chewxy/math32"
	"github.com/scenelab/scenelab/accumulation"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/log"
	"github.com/scenelab/scenelab/scene"
	"github.com/scenelab/scenelab/types"
)

// Secondary rays start this far away from the surface along its normal.
const defaultShadowBias float32 = 1e-3

// A tracer that renders blocks on the calling goroutine.
type cpuTracer struct {
	logger log.Logger

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[ChangeType]interface{}

	snapshot  *scene.Snapshot
	camera    scene.Camera
	hasCamera bool

	target *accumulation.Buffer

	// Statistics for the last rendered block.
	stats *Stats

	shadowBias float32
}

// Create a new cpu tracer.
func NewCPU(id string) Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		updateBuffer: make(map[ChangeType]interface{}),
		stats:        &Stats{},
		shadowBias:   defaultShadowBias,
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// The cpu tracer is the baseline for speed estimates.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.snapshot = nil
	tr.target = nil
	tr.hasCamera = false
	clear(tr.updateBuffer)
}

// Attach the buffer that receives traced samples.
func (tr *cpuTracer) Setup(target *accumulation.Buffer) error {
	if target == nil || target.Width <= 0 || target.Height <= 0 {
		return errors.New("invalid tracer target").WithType(ErrTypeNotReady)
	}
	tr.target = target
	return nil
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) AppendChange(changeType ChangeType, data interface{}) {
	tr.updateBuffer[changeType] = data
}

// Apply all pending changes from the update buffer.
func (tr *cpuTracer) ApplyPendingChanges() error {
	for changeType, data := range tr.updateBuffer {
		switch changeType {
		case SetScene:
			snapshot, ok := data.(*scene.Snapshot)
			if !ok || snapshot == nil {
				return invalidChangeErr(changeType, data)
			}
			tr.snapshot = snapshot
			tr.logger.Debugf("using scene snapshot version %d (%d primitives)", snapshot.Version, snapshot.Len())
		case UpdateCamera:
			camera, ok := data.(scene.Camera)
			if !ok {
				return invalidChangeErr(changeType, data)
			}
			tr.camera = camera
			tr.hasCamera = true
		}
		delete(tr.updateBuffer, changeType)
	}
	return nil
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

// Trace a block of rows. Each pixel receives the average of
// SamplesPerPixel jittered primary rays.
func (tr *cpuTracer) Trace(req BlockRequest) error {
	if tr.target == nil || tr.snapshot == nil || !tr.hasCamera {
		return errors.New("tracer is missing its target, scene or camera").
			WithType(ErrTypeNotReady).
			WithTag("tracer", tr.id)
	}

	frameW, frameH := tr.target.Width, tr.target.Height
	if req.BlockH == 0 || int(req.BlockY+req.BlockH) > frameH {
		return errors.New("block exceeds frame bounds").
			WithType(ErrTypeInvalidBlock).
			WithTag("block_y", req.BlockY).
			WithTag("block_h", req.BlockH).
			WithTag("frame_h", frameH)
	}

	spp := req.SamplesPerPixel
	if spp == 0 {
		spp = 1
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(int64(req.Seed)))
	cam := tr.camera
	cam.Aspect = float32(frameW) / float32(frameH)

	var rays uint64
	invW, invH := 1/float32(frameW), 1/float32(frameH)
	weight := 1 / float32(spp)
	for y := int(req.BlockY); y < int(req.BlockY+req.BlockH); y++ {
		for x := 0; x < frameW; x++ {
			var sum types.Vec3
			for s := uint32(0); s < spp; s++ {
				u := (float32(x) + rng.Float32()) * invW
				v := (float32(y) + rng.Float32()) * invH
				radiance, cast := tr.shade(cam.GenerateRay(u, v), rng)
				sum = sum.Add(radiance)
				rays += cast
			}
			tr.target.Set(x, y, sum.Mul(weight))
		}
	}

	tr.stats.BlockH = req.BlockH
	tr.stats.BlockTime = time.Since(start).Nanoseconds()
	tr.stats.Rays = rays
	return nil
}

// Estimate the radiance along a primary ray. Surfaces receive the
// directional light (if any) plus the background radiance seen along one
// cosine distributed direction. Returns the radiance and the number of rays
// cast.
func (tr *cpuTracer) shade(ray bvh.Ray, rng *rand.Rand) (types.Vec3, uint64) {
	snap := tr.snapshot
	hit, ok := snap.Nearest(ray, 0, math32.MaxFloat32)
	if !ok {
		return snap.Background, 1
	}

	prim := snap.Primitives[hit.Primitive]
	mat := prim.Surface()
	point := ray.At(hit.Distance)
	normal := prim.Normal(point)
	if normal.Dot(ray.Dir) > 0 {
		normal = normal.Mul(-1)
	}
	origin := point.Add(normal.Mul(tr.shadowBias))

	var irradiance types.Vec3
	rays := uint64(1)
	if light := snap.Light; light != nil {
		if ndl := normal.Dot(light.Direction); ndl > 0 {
			rays++
			if !snap.Occluded(bvh.NewRay(origin, light.Direction), 0, math32.MaxFloat32) {
				irradiance = irradiance.Add(light.Color.Mul(ndl))
			}
		}
	}

	rays++
	if !snap.Occluded(bvh.NewRay(origin, cosineSampleHemisphere(normal, rng)), 0, math32.MaxFloat32) {
		irradiance = irradiance.Add(snap.Background)
	}

	return mat.Emission.Add(mat.Albedo.MulVec(irradiance)), rays
}

// Pick a direction on the hemisphere around normal with a cosine weighted
// distribution.
func cosineSampleHemisphere(normal types.Vec3, rng *rand.Rand) types.Vec3 {
	r1, r2 := rng.Float32(), rng.Float32()
	sin, cos := math32.Sincos(2 * math32.Pi * r1)
	r := math32.Sqrt(r2)
	local := types.XYZ(r*cos, r*sin, math32.Sqrt(math32.Max(0, 1-r2)))

	// Build an orthonormal basis around the normal.
	axis := types.XYZ(1, 0, 0)
	if math32.Abs(normal[0]) > 0.9 {
		axis = types.XYZ(0, 1, 0)
	}
	tangent := axis.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Mul(local[0]).Add(bitangent.Mul(local[1])).Add(normal.Mul(local[2])).Normalize()
}

func invalidChangeErr(changeType ChangeType, data interface{}) error {
	return errors.New("unexpected change payload").
		WithType(ErrTypeNotReady).
		WithTag("change", int(changeType)).
		WithTag("payload", fmt.Sprintf("%T", data))
}
