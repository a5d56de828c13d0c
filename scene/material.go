package scene

import "github.com/scenelab/scenelab/types"

type MaterialType uint8

const (
	DiffuseMaterial MaterialType = iota
	EmissiveMaterial
)

// Defines a surface material.
type Material struct {
	// The type of the material.
	Type MaterialType

	// Diffuse reflectance.
	Albedo types.Vec3

	// Emitted radiance (emissive materials only).
	Emission types.Vec3
}

// The material assigned to primitives that do not specify one.
var DefaultMaterial = &Material{
	Type:   DiffuseMaterial,
	Albedo: types.Splat(0.75),
}

// Create a diffuse material.
func NewDiffuse(albedo types.Vec3) *Material {
	return &Material{Type: DiffuseMaterial, Albedo: albedo}
}

// Create an emissive material.
func NewEmissive(emission types.Vec3) *Material {
	return &Material{Type: EmissiveMaterial, Emission: emission}
}
