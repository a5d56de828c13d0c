package bvh

import (
	"github.com/chewxy/math32"
	"github.com/scenelab/scenelab/types"
)

// Ray is a half-line with a cached reciprocal direction for slab tests.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3
}

// NewRay creates a ray. Zero direction components get a +Inf reciprocal
// instead of a signed one so that a -0 component cannot flip a slab interval.
func NewRay(origin, dir types.Vec3) Ray {
	r := Ray{Origin: origin, Dir: dir}
	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			r.InvDir[axis] = math32.Inf(1)
			continue
		}
		r.InvDir[axis] = 1 / dir[axis]
	}
	return r
}

// At returns the point at parametric distance t along the ray.
func (r Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Hit describes a ray/primitive intersection.
type Hit struct {
	// Index of the primitive in the caller's primitive array.
	Primitive int

	// Parametric distance along the ray.
	Distance float32

	// Surface parameters reported by the primitive (barycentrics for
	// triangles, spherical coordinates for spheres).
	U, V float32
}

// The Intersector interface is implemented by the owner of the primitive
// array a BVH was built over.
type Intersector interface {
	// Intersect the primitive with the given index. Only hits with a
	// distance inside [tMin, tMax] may be reported.
	Intersect(index int, ray Ray, tMin, tMax float32) (Hit, bool)
}

// IntersectorFunc adapts a function to the Intersector interface.
type IntersectorFunc func(index int, ray Ray, tMin, tMax float32) (Hit, bool)

func (f IntersectorFunc) Intersect(index int, ray Ray, tMin, tMax float32) (Hit, bool) {
	return f(index, ray, tMin, tMax)
}
