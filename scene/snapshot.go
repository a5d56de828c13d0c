package scene

import (
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
)

// Snapshot is an immutable copy of a scene together with its acceleration
// structure. Primitive indices reported by hits refer to Primitives.
type Snapshot struct {
	// Incremented every time the scene is rebuilt.
	Version uint64

	Background types.Vec3
	Light      *Light

	Tree       *bvh.BVH
	Primitives []Primitive
	IDs        []PrimitiveID
}

// Intersect implements bvh.Intersector.
func (s *Snapshot) Intersect(index int, ray bvh.Ray, tMin, tMax float32) (bvh.Hit, bool) {
	dist, u, v, ok := s.Primitives[index].Intersect(ray, tMin, tMax)
	if !ok {
		return bvh.Hit{}, false
	}
	return bvh.Hit{Primitive: index, Distance: dist, U: u, V: v}, true
}

// Nearest returns the closest hit along ray within [tMin, tMax].
func (s *Snapshot) Nearest(ray bvh.Ray, tMin, tMax float32) (bvh.Hit, bool) {
	return s.Tree.Nearest(ray, tMin, tMax, s)
}

// Occluded returns true if anything intersects ray within [tMin, tMax].
func (s *Snapshot) Occluded(ray bvh.Ray, tMin, tMax float32) bool {
	return s.Tree.Any(ray, tMin, tMax, s)
}

// Len returns the number of primitives in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Primitives)
}

// Bounds returns the bounds of the whole scene.
func (s *Snapshot) Bounds() bvh.AABB {
	return s.Tree.Root.Bounds
}
