package bvh

import (
	"github.com/chewxy/math32"
	"github.com/scenelab/scenelab/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// AABB is an axis-aligned bounding box. An empty box is inverted (Min > Max on
// every axis) so that expanding it with any point or box yields that point or
// box. Use EmptyAABB to obtain one; the zero value is a degenerate box at the
// origin.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// EmptyAABB returns an inverted box that acts as the identity for Expand.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB returns the smallest box containing all supplied points.
func NewAABB(points ...types.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box.ExpandPoint(p)
	}
	return box
}

// Union returns the smallest box containing both a and b.
func Union(a, b AABB) AABB {
	return AABB{
		Min: types.MinVec3(a.Min, b.Min),
		Max: types.MaxVec3(a.Max, b.Max),
	}
}

// ExpandPoint grows the box so it contains p.
func (b *AABB) ExpandPoint(p types.Vec3) {
	b.Min = types.MinVec3(b.Min, p)
	b.Max = types.MaxVec3(b.Max, p)
}

// Expand grows the box so it contains other.
func (b *AABB) Expand(other AABB) {
	b.Min = types.MinVec3(b.Min, other.Min)
	b.Max = types.MaxVec3(b.Max, other.Max)
}

// IsEmpty reports whether the box is inverted on any axis.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Centroid returns the box center. The result is undefined for empty boxes.
func (b AABB) Centroid() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the box side lengths.
func (b AABB) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the total area of the six box faces.
func (b AABB) SurfaceArea() float32 {
	e := b.Extent()
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[2]*e[0])
}

// LongestAxis returns the axis with the largest extent. Ties resolve to the
// later axis so a cube reports ZAxis.
func (b AABB) LongestAxis() Axis {
	e := b.Extent()
	if e[0] > e[1] && e[0] > e[2] {
		return XAxis
	}
	if e[1] > e[2] {
		return YAxis
	}
	return ZAxis
}

// Intersect clips the [tMin, tMax] interval of ray against the box slabs and
// returns the clipped interval. Rays parallel to a slab rely on the +Inf
// inverse direction components set up by NewRay; the NaNs produced when the
// origin lies exactly on a slab plane fail every comparison and are ignored.
func (b AABB) Intersect(ray Ray, tMin, tMax float32) (tNear, tFar float32, ok bool) {
	tNear, tFar = tMin, tMax
	for axis := XAxis; axis <= ZAxis; axis++ {
		t0 := (b.Min[axis] - ray.Origin[axis]) * ray.InvDir[axis]
		t1 := (b.Max[axis] - ray.Origin[axis]) * ray.InvDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return tNear, tFar, false
		}
	}
	return tNear, tFar, true
}
