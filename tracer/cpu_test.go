package tracer

import (
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/accumulation"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/scene"
	"github.com/scenelab/scenelab/types"
	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func setupTracer(t *testing.T, sc *scene.Scene, cam *scene.Camera, width, height int) (Tracer, *accumulation.Buffer) {
	tr := NewCPU("cpu-test")
	target := accumulation.NewBuffer(width, height)
	require.NoError(t, tr.Setup(target))

	tr.AppendChange(SetScene, sc.Snapshot())
	tr.AppendChange(UpdateCamera, *cam)
	require.NoError(t, tr.ApplyPendingChanges())
	return tr, target
}

func TestTraceRequiresSceneAndCamera(t *testing.T) {
	tr := NewCPU("cpu-test")
	defer tr.Close()

	require.Error(t, tr.Setup(nil))
	require.NoError(t, tr.Setup(accumulation.NewBuffer(4, 4)))

	err := tr.Trace(BlockRequest{BlockH: 4})
	require.Error(t, err)
	require.Equal(t, ErrTypeNotReady, errors.Type(err))

	tr.AppendChange(SetScene, "not a snapshot")
	err = tr.ApplyPendingChanges()
	require.Error(t, err)
}

func TestTraceRejectsBlocksOutsideFrame(t *testing.T) {
	sc := scene.New(bvh.DefaultOptions())
	tr, _ := setupTracer(t, sc, scene.NewCamera(60), 4, 4)

	for _, req := range []BlockRequest{{BlockY: 0, BlockH: 0}, {BlockY: 2, BlockH: 3}} {
		err := tr.Trace(req)
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidBlock, errors.Type(err))
	}
}

func TestTraceBackgroundAndOcclusion(t *testing.T) {
	sc := scene.New(bvh.DefaultOptions())
	sc.Background = types.XYZ(1, 1, 1)
	sc.Add(scene.NewSphere(types.XYZ(0, 0, -3), 1, scene.NewDiffuse(types.XYZ(0.5, 0.25, 1))))

	tr, target := setupTracer(t, sc, scene.NewCamera(60), 16, 16)
	require.NoError(t, tr.Trace(BlockRequest{BlockY: 0, BlockH: 16, SamplesPerPixel: 2, Seed: 7}))

	// A convex object never occludes its own hemisphere samples.
	require.True(t, target.At(8, 8).ApproxEqual(types.XYZ(0.5, 0.25, 1), 1e-5), "got %v", target.At(8, 8))
	require.Equal(t, types.XYZ(1, 1, 1), target.At(0, 0))

	stats := tr.Stats()
	require.Equal(t, uint32(16), stats.BlockH)
	require.NotZero(t, stats.Rays)
}

func TestTraceBlockOnlyTouchesItsRows(t *testing.T) {
	sc := scene.New(bvh.DefaultOptions())
	sc.Background = types.XYZ(0.2, 0.2, 0.2)

	tr, target := setupTracer(t, sc, scene.NewCamera(60), 4, 8)
	require.NoError(t, tr.Trace(BlockRequest{BlockY: 2, BlockH: 3, Seed: 1}))

	for y := 0; y < 8; y++ {
		exp := types.Vec3{}
		if y >= 2 && y < 5 {
			exp = types.XYZ(0.2, 0.2, 0.2)
		}
		require.Equal(t, exp, target.At(1, y), "row %d", y)
	}
}

func TestShadeDirectLightAndShadows(t *testing.T) {
	sc := scene.New(bvh.DefaultOptions())
	sc.Light = &scene.Light{Direction: types.XYZ(0, 1, 0), Color: types.XYZ(1, 1, 1)}
	floor := scene.NewDiffuse(types.XYZ(0.8, 0.8, 0.8))
	sc.Add(scene.NewTriangle([3]types.Vec3{
		types.XYZ(-10, -1, 10),
		types.XYZ(10, -1, 10),
		types.XYZ(0, -1, -20),
	}, floor))
	sc.Add(scene.NewSphere(types.XYZ(0, 1, -5), 0.5, nil))

	tr, _ := setupTracer(t, sc, scene.NewCamera(60), 1, 1)
	cpu := tr.(*cpuTracer)

	shaded := func(target types.Vec3) types.Vec3 {
		ray := bvh.NewRay(types.XYZ(0, 0, 0), target.Normalize())
		radiance, rays := cpu.shade(ray, newTestRand())
		require.Equal(t, uint64(3), rays)
		return radiance
	}

	// The sphere blocks the light above (0, -1, -5).
	require.Equal(t, types.Vec3{}, shaded(types.XYZ(0, -1, -5)))
	require.True(t, shaded(types.XYZ(2, -1, -5)).ApproxEqual(types.XYZ(0.8, 0.8, 0.8), 1e-5))
}
