package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/accumulation"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "renderer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadOptions(t *testing.T) {
	path := writeConfig(t, `
width: 320
height: 200
spp: 4
tracers: 3
scheduler: naive
bvh:
  strategy: median
  leaf_size: 2
`)

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, 320, opts.FrameW)
	require.Equal(t, 200, opts.FrameH)
	require.Equal(t, uint32(4), opts.SamplesPerPixel)
	require.Equal(t, 3, opts.Tracers)

	// Unset values keep their defaults.
	require.Equal(t, float32(1), opts.Exposure)

	bvhOpts, err := opts.BVHBuildOptions()
	require.NoError(t, err)
	require.Nil(t, bvhOpts.Strategy)
	require.Equal(t, 2, bvhOpts.MaxLeafItems)
	require.Equal(t, bvh.DefaultOptions().MaxDepth, bvhOpts.MaxDepth)
}

func TestLoadOptionsErrors(t *testing.T) {
	specs := []struct {
		descr    string
		contents string
	}{
		{"malformed yaml", "width: [1, 2"},
		{"unknown scheduler", "scheduler: random"},
		{"unknown strategy", "bvh:\n  strategy: octree"},
		{"no tracers", "tracers: 0"},
		{"negative exposure", "exposure: -1"},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			_, err := LoadOptions(writeConfig(t, spec.contents))
			require.Error(t, err)
			require.Equal(t, ErrTypeInvalidOptions, errors.Type(err))
		})
	}

	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Equal(t, ErrTypeInvalidOptions, errors.Type(err))
}

func TestToneMap(t *testing.T) {
	buf := accumulation.NewBuffer(3, 1)
	buf.Set(0, 0, types.Splat(0))
	buf.Set(1, 0, types.XYZ(0.5, 1, 2))
	buf.Set(2, 0, types.Splat(1000))

	img := ToneMap(buf, 1)
	black, mid, white := img.RGBAAt(0, 0), img.RGBAAt(1, 0), img.RGBAAt(2, 0)

	require.Equal(t, uint8(0), black.R)
	require.Equal(t, uint8(0xff), black.A)
	require.Equal(t, uint8(255), white.G)
	require.Less(t, mid.R, mid.G)
	require.Less(t, mid.G, mid.B)

	// Higher exposure brightens the image.
	bright := ToneMap(buf, 4).RGBAAt(1, 0)
	require.Greater(t, bright.R, mid.R)
}
