package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
	"github.com/stretchr/testify/require"
)

const jsonDescription = `{
  "background": [0.1, 0.2, 0.3],
  "light": {"direction": [0, 2, 0], "color": [1, 1, 1]},
  "materials": {
    "red": {"albedo": [0.9, 0.1, 0.1]},
    "lamp": {"emission": [4, 4, 4]}
  },
  "spheres": [
    {"center": [0, 0, -5], "radius": 1, "material": "red"},
    {"center": [0, 3, -5], "radius": 0.5, "material": "lamp"}
  ],
  "triangles": [
    {"vertices": [[-10, -1, 10], [10, -1, 10], [0, -1, -20]]}
  ],
  "cameras": [
    {"position": [0, 0, 0], "fov": 60},
    {"position": [0, 1, 4], "rotation": [-10, 0, 0], "fov": 45, "focused": true}
  ]
}`

const yamlDescription = `
background: [0.1, 0.2, 0.3]
light:
  direction: [0, 2, 0]
  color: [1, 1, 1]
materials:
  red:
    albedo: [0.9, 0.1, 0.1]
  lamp:
    emission: [4, 4, 4]
spheres:
  - center: [0, 0, -5]
    radius: 1
    material: red
  - center: [0, 3, -5]
    radius: 0.5
    material: lamp
triangles:
  - vertices: [[-10, -1, 10], [10, -1, 10], [0, -1, -20]]
cameras:
  - position: [0, 0, 0]
    fov: 60
  - position: [0, 1, 4]
    rotation: [-10, 0, 0]
    fov: 45
    focused: true
`

func TestDecodeDescription(t *testing.T) {
	specs := []struct {
		name   string
		format Format
		input  string
	}{
		{"json", JSONFormat, jsonDescription},
		{"yaml", YAMLFormat, yamlDescription},
	}

	for _, s := range specs {
		desc, err := DecodeDescription(strings.NewReader(s.input), s.format)
		require.NoError(t, err, s.name)

		require.Equal(t, types.XYZ(0.1, 0.2, 0.3), desc.Background, s.name)
		require.Len(t, desc.Spheres, 2, s.name)
		require.Len(t, desc.Triangles, 1, s.name)
		require.Len(t, desc.Cameras, 2, s.name)
		require.Equal(t, types.XYZ(0, -1, -20), desc.Triangles[0].Vertices[2], s.name)

		sc, cams := desc.Build(bvh.DefaultOptions())
		require.Equal(t, 3, sc.Len(), s.name)
		require.NotNil(t, sc.Light, s.name)
		require.Equal(t, types.XYZ(0, 1, 0), sc.Light.Direction, s.name)

		snap := sc.Snapshot()
		require.Equal(t, types.XYZ(0.9, 0.1, 0.1), snap.Primitives[0].Surface().Albedo, s.name)
		require.Equal(t, EmissiveMaterial, snap.Primitives[1].Surface().Type, s.name)
		require.Equal(t, DefaultMaterial, snap.Primitives[2].Surface(), s.name)

		require.Equal(t, 2, cams.Len(), s.name)
		id, cam, ok := cams.Focused()
		require.True(t, ok, s.name)
		require.Equal(t, 2, id, s.name)
		require.Equal(t, float32(45), cam.FOV, s.name)
		require.Equal(t, types.XYZ(-10, 0, 0), cam.Rotation, s.name)
	}
}

func TestDecodeInvalidDescription(t *testing.T) {
	specs := []struct {
		name   string
		format Format
		input  string
	}{
		{"malformed json", JSONFormat, `{"spheres": [`},
		{"unknown json field", JSONFormat, `{"planes": []}`},
		{"unknown yaml field", YAMLFormat, "planes: []\n"},
		{"wrong vector size", YAMLFormat, "background: [1, 2]\n"},
		{"negative radius", JSONFormat, `{"spheres": [{"center": [0, 0, 0], "radius": -1}]}`},
		{"unknown material", YAMLFormat, "spheres:\n  - center: [0, 0, 0]\n    radius: 1\n    material: gold\n"},
		{"bad fov", JSONFormat, `{"cameras": [{"fov": 180}]}`},
	}

	for _, s := range specs {
		_, err := DecodeDescription(strings.NewReader(s.input), s.format)
		require.Error(t, err, s.name)
		require.Equal(t, ErrTypeInvalidDescription, errors.Type(err), s.name)
	}
}

func TestEmptyDescriptionBuildsDefaultCamera(t *testing.T) {
	desc, err := DecodeDescription(strings.NewReader(""), YAMLFormat)
	require.NoError(t, err)

	sc, cams := desc.Build(bvh.DefaultOptions())
	require.Zero(t, sc.Len())

	id, cam, ok := cams.Focused()
	require.True(t, ok)
	require.Equal(t, 1, id)
	require.Equal(t, DefaultFOV, cam.FOV)
}

func TestReadDescription(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "scene.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDescription), 0o644))
	desc, err := ReadDescription(path)
	require.NoError(t, err)
	require.Len(t, desc.Spheres, 2)

	path = filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonDescription), 0o644))
	desc, err = ReadDescription(path)
	require.NoError(t, err)
	require.Len(t, desc.Cameras, 2)

	_, err = ReadDescription(filepath.Join(dir, "scene.obj"))
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidDescription, errors.Type(err))

	_, err = ReadDescription(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestReadDescriptionIncludes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "parts"), 0o755))

	root := `
include: [parts/floor.yaml]
materials:
  red: {albedo: [0.9, 0.1, 0.1]}
spheres:
  - {center: [0, 0, -5], radius: 1, material: red}
`
	floor := `{
  "background": [1, 1, 1],
  "materials": {"red": {"albedo": [0, 0, 1]}, "grey": {"albedo": [0.5, 0.5, 0.5]}},
  "triangles": [{"vertices": [[-10, -1, 10], [10, -1, 10], [0, -1, -20]], "material": "grey"}],
  "cameras": [{"position": [0, 1, 4], "fov": 50}]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.yaml"), []byte(root), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parts", "floor.json"), []byte(floor), 0o644))

	// The include points at a file that does not exist.
	_, err := ReadDescription(filepath.Join(dir, "scene.yaml"))
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidDescription, errors.Type(err))

	root = strings.Replace(root, "floor.yaml", "floor.json", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.yaml"), []byte(root), 0o644))

	desc, err := ReadDescription(filepath.Join(dir, "scene.yaml"))
	require.NoError(t, err)
	require.Empty(t, desc.Include)
	require.Len(t, desc.Spheres, 1)
	require.Len(t, desc.Triangles, 1)
	require.Len(t, desc.Cameras, 1)
	require.Equal(t, types.XYZ(1, 1, 1), desc.Background)

	// Materials of the including file win.
	require.Equal(t, types.XYZ(0.9, 0.1, 0.1), desc.Materials["red"].Albedo)
	require.Contains(t, desc.Materials, "grey")
}

func TestReadDescriptionIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loop.yaml"), []byte("include: [loop.yaml]\n"), 0o644))

	_, err := ReadDescription(filepath.Join(dir, "loop.yaml"))
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidDescription, errors.Type(err))
}
