package scene

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/asset"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

const ErrTypeInvalidDescription = "invalid_scene_description"

// Includes nested deeper than this are rejected.
const maxIncludeDepth = 8

// Format selects the encoding of a scene description.
type Format uint8

const (
	JSONFormat Format = iota
	YAMLFormat
)

// FormatFromPath guesses the description format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONFormat, nil
	case ".yaml", ".yml":
		return YAMLFormat, nil
	}
	return JSONFormat, errors.New("unsupported scene description extension").
		WithType(ErrTypeInvalidDescription).
		WithTag("path", path)
}

// Description is the serialized form of a scene.
type Description struct {
	// Other descriptions merged into this one. Relative paths are resolved
	// against the including file.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	Background types.Vec3                     `json:"background" yaml:"background"`
	Light      *LightDescription              `json:"light,omitempty" yaml:"light,omitempty"`
	Materials  map[string]MaterialDescription `json:"materials,omitempty" yaml:"materials,omitempty"`
	Spheres    []SphereDescription            `json:"spheres,omitempty" yaml:"spheres,omitempty"`
	Triangles  []TriangleDescription          `json:"triangles,omitempty" yaml:"triangles,omitempty"`
	Cameras    []CameraDescription            `json:"cameras,omitempty" yaml:"cameras,omitempty"`
}

type LightDescription struct {
	Direction types.Vec3 `json:"direction" yaml:"direction"`
	Color     types.Vec3 `json:"color" yaml:"color"`
}

type MaterialDescription struct {
	Albedo   types.Vec3 `json:"albedo" yaml:"albedo"`
	Emission types.Vec3 `json:"emission" yaml:"emission"`
}

type SphereDescription struct {
	Center   types.Vec3 `json:"center" yaml:"center"`
	Radius   float32    `json:"radius" yaml:"radius"`
	Material string     `json:"material,omitempty" yaml:"material,omitempty"`
}

type TriangleDescription struct {
	Vertices [3]types.Vec3 `json:"vertices" yaml:"vertices"`
	Material string        `json:"material,omitempty" yaml:"material,omitempty"`
}

type CameraDescription struct {
	Position types.Vec3 `json:"position" yaml:"position"`
	Rotation types.Vec3 `json:"rotation" yaml:"rotation"`
	FOV      float32    `json:"fov" yaml:"fov"`
	Focused  bool       `json:"focused,omitempty" yaml:"focused,omitempty"`
}

// ReadDescription loads a scene description from a local file or an
// http(s) URL. The format is selected by the file extension.
func ReadDescription(path string) (*Description, error) {
	desc, err := readDescription(path, nil, 0)
	if err != nil {
		return nil, err
	}
	if err = desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

func readDescription(path string, relTo *asset.Resource, depth int) (*Description, error) {
	if depth > maxIncludeDepth {
		return nil, errors.New("scene description includes are nested too deeply").
			WithType(ErrTypeInvalidDescription).
			WithTag("path", path)
	}

	res, err := asset.NewResource(path, relTo)
	if err != nil {
		return nil, errors.New("could not open scene description").
			WithType(ErrTypeInvalidDescription).
			WithTag("path", path).
			Wrap(err)
	}
	defer res.Close()

	format, err := FormatFromPath(res.Name())
	if err != nil {
		return nil, err
	}

	desc, err := decodeDescription(res, format)
	if err != nil {
		return nil, err
	}

	for _, include := range desc.Include {
		included, err := readDescription(include, res, depth+1)
		if err != nil {
			return nil, err
		}
		desc.merge(included)
	}
	desc.Include = nil
	return desc, nil
}

// DecodeDescription parses a scene description from r. Include entries are
// not resolved.
func DecodeDescription(r io.Reader, format Format) (*Description, error) {
	desc, err := decodeDescription(r, format)
	if err != nil {
		return nil, err
	}
	if err = desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

func decodeDescription(r io.Reader, format Format) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("could not read scene description").
			WithType(ErrTypeInvalidDescription).
			Wrap(err)
	}

	var desc Description
	switch format {
	case YAMLFormat:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&desc)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&desc)
	}
	if err != nil && err != io.EOF {
		return nil, errors.New("could not decode scene description").
			WithType(ErrTypeInvalidDescription).
			Wrap(err)
	}
	return &desc, nil
}

// Append the primitives and cameras of other. Materials, background and
// light defined by d take precedence.
func (d *Description) merge(other *Description) {
	for name, m := range other.Materials {
		if _, exists := d.Materials[name]; exists {
			continue
		}
		if d.Materials == nil {
			d.Materials = make(map[string]MaterialDescription)
		}
		d.Materials[name] = m
	}
	if d.Light == nil {
		d.Light = other.Light
	}
	if d.Background == (types.Vec3{}) {
		d.Background = other.Background
	}

	d.Spheres = append(d.Spheres, other.Spheres...)
	d.Triangles = append(d.Triangles, other.Triangles...)
	d.Cameras = append(d.Cameras, other.Cameras...)
}

// Validate checks the description for values that cannot produce a scene.
func (d *Description) Validate() error {
	for idx, s := range d.Spheres {
		if s.Radius <= 0 {
			return invalidDescriptionErr("sphere radius must be positive", "sphere", idx)
		}
		if _, ok := d.Materials[s.Material]; s.Material != "" && !ok {
			return invalidDescriptionErr("unknown material "+s.Material, "sphere", idx)
		}
	}

	for idx, t := range d.Triangles {
		if _, ok := d.Materials[t.Material]; t.Material != "" && !ok {
			return invalidDescriptionErr("unknown material "+t.Material, "triangle", idx)
		}
	}

	for idx, c := range d.Cameras {
		if c.FOV < 0 || c.FOV >= 180 {
			return invalidDescriptionErr("camera fov must be in [0, 180)", "camera", idx)
		}
	}
	return nil
}

// Build instantiates the scene and cameras described by d. If the
// description does not define any camera, a default one looking down the
// negative Z axis is created. The first camera marked as focused (or the
// first camera) receives the focus.
func (d *Description) Build(opts bvh.Options) (*Scene, *Cameras) {
	sc := New(opts)
	sc.Background = d.Background
	if d.Light != nil {
		sc.Light = &Light{
			Direction: d.Light.Direction.Normalize(),
			Color:     d.Light.Color,
		}
	}

	materials := make(map[string]*Material, len(d.Materials))
	for name, m := range d.Materials {
		mat := NewDiffuse(m.Albedo)
		if m.Emission != (types.Vec3{}) {
			mat.Type = EmissiveMaterial
			mat.Emission = m.Emission
		}
		materials[name] = mat
	}

	for _, s := range d.Spheres {
		sc.Add(NewSphere(s.Center, s.Radius, materials[s.Material]))
	}
	for _, t := range d.Triangles {
		sc.Add(NewTriangle(t.Vertices, materials[t.Material]))
	}

	cams := NewCameras()
	focusID, explicit := 0, false
	for _, c := range d.Cameras {
		cam := NewCamera(c.FOV)
		cam.Position = c.Position
		cam.Rotation = c.Rotation
		id, _ := cams.Add(cam)

		if focusID == 0 || (c.Focused && !explicit) {
			focusID = id
			explicit = c.Focused
		}
	}
	if cams.Len() == 0 {
		focusID, _ = cams.Create()
	}
	_ = cams.Focus(focusID)

	return sc, cams
}

func invalidDescriptionErr(msg, kind string, index int) error {
	return errors.New(msg).
		WithType(ErrTypeInvalidDescription).
		WithTag(kind, index)
}
