package scene

import (
	"github.com/chewxy/math32"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
)

// Triangles whose determinant falls below this value are treated as parallel
// to the ray.
const triangleEpsilon float32 = 1e-8

// The Primitive interface is implemented by all renderable shapes. Bounds and
// Centroid are expressed in world space.
type Primitive interface {
	bvh.BoundedVolume

	// Intersect returns the distance and surface parameters of the closest
	// intersection with t in [tMin, tMax].
	Intersect(ray bvh.Ray, tMin, tMax float32) (dist, u, v float32, ok bool)

	// Normal returns the unit surface normal at point.
	Normal(point types.Vec3) types.Vec3

	// Translated returns a copy of the primitive moved by offset.
	Translated(offset types.Vec3) Primitive

	// Surface returns the primitive material.
	Surface() *Material
}

// A sphere primitive.
type Sphere struct {
	Center   types.Vec3
	Radius   float32
	Material *Material
}

// Create new sphere primitive.
func NewSphere(center types.Vec3, radius float32, material *Material) *Sphere {
	if material == nil {
		material = DefaultMaterial
	}
	return &Sphere{Center: center, Radius: radius, Material: material}
}

func (s *Sphere) Bounds() bvh.AABB {
	r := types.Splat(s.Radius)
	return bvh.NewAABB(s.Center.Sub(r), s.Center.Add(r))
}

func (s *Sphere) Centroid() types.Vec3 {
	return s.Center
}

// Intersect solves the ray/sphere quadratic. U and V are the spherical
// coordinates of the hit point mapped to [0, 1].
func (s *Sphere) Intersect(ray bvh.Ray, tMin, tMax float32) (float32, float32, float32, bool) {
	oc := ray.Origin.Sub(s.Center)
	a := ray.Dir.Dot(ray.Dir)
	halfB := oc.Dot(ray.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := halfB*halfB - a*c
	if disc < 0 || a == 0 {
		return 0, 0, 0, false
	}

	sq := math32.Sqrt(disc)
	root := (-halfB - sq) / a
	if root < tMin || root > tMax {
		root = (-halfB + sq) / a
		if root < tMin || root > tMax {
			return 0, 0, 0, false
		}
	}

	n := s.Normal(ray.At(root))
	u := 0.5 + math32.Atan2(n[2], n[0])/(2*math32.Pi)
	v := 0.5 - math32.Asin(n[1])/math32.Pi
	return root, u, v, true
}

func (s *Sphere) Normal(point types.Vec3) types.Vec3 {
	return point.Sub(s.Center).Normalize()
}

func (s *Sphere) Translated(offset types.Vec3) Primitive {
	moved := *s
	moved.Center = s.Center.Add(offset)
	return &moved
}

func (s *Sphere) Surface() *Material {
	return s.Material
}

// A triangle primitive. Both faces are hit; the geometric normal follows the
// counter clockwise winding of the vertices.
type Triangle struct {
	Vertices [3]types.Vec3
	Material *Material

	normal types.Vec3
}

// Create new triangle primitive.
func NewTriangle(vertices [3]types.Vec3, material *Material) *Triangle {
	if material == nil {
		material = DefaultMaterial
	}
	e1 := vertices[1].Sub(vertices[0])
	e2 := vertices[2].Sub(vertices[0])
	return &Triangle{
		Vertices: vertices,
		Material: material,
		normal:   e1.Cross(e2).Normalize(),
	}
}

func (t *Triangle) Bounds() bvh.AABB {
	return bvh.NewAABB(t.Vertices[:]...)
}

func (t *Triangle) Centroid() types.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Mul(1.0 / 3.0)
}

// Intersect implements the Moller-Trumbore test. U and V are the
// barycentric coordinates of the hit relative to vertices 1 and 2.
func (t *Triangle) Intersect(ray bvh.Ray, tMin, tMax float32) (float32, float32, float32, bool) {
	e1 := t.Vertices[1].Sub(t.Vertices[0])
	e2 := t.Vertices[2].Sub(t.Vertices[0])
	p := ray.Dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < triangleEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	s := ray.Origin.Sub(t.Vertices[0])
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v := ray.Dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	dist := e2.Dot(q) * invDet
	if dist < tMin || dist > tMax {
		return 0, 0, 0, false
	}
	return dist, u, v, true
}

func (t *Triangle) Normal(types.Vec3) types.Vec3 {
	return t.normal
}

func (t *Triangle) Translated(offset types.Vec3) Primitive {
	var moved [3]types.Vec3
	for idx, vertex := range t.Vertices {
		moved[idx] = vertex.Add(offset)
	}
	return NewTriangle(moved, t.Material)
}

func (t *Triangle) Surface() *Material {
	return t.Material
}
