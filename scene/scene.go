package scene

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/log"
	"github.com/scenelab/scenelab/types"
)

const ErrTypeUnknownPrimitive = "unknown_primitive"

// PrimitiveID identifies a primitive inside a Scene. Ids are never reused.
type PrimitiveID int

// A directional light.
type Light struct {
	// Unit vector pointing from the surface towards the light.
	Direction types.Vec3

	// Light radiance.
	Color types.Vec3
}

// Scene is the editable primitive set. Edits only mark the scene as dirty;
// the acceleration structure is rebuilt as a whole by the next call to
// Snapshot.
type Scene struct {
	logger log.Logger

	// Background radiance returned by rays that escape the scene.
	Background types.Vec3

	// Optional directional light.
	Light *Light

	// Build options for the acceleration structure.
	BVHOptions bvh.Options

	nextID     PrimitiveID
	order      []PrimitiveID
	primitives map[PrimitiveID]Primitive

	dirty    bool
	snapshot *Snapshot
	version  uint64
}

func New(opts bvh.Options) *Scene {
	return &Scene{
		logger:     log.New("scene"),
		BVHOptions: opts,
		nextID:     1,
		primitives: make(map[PrimitiveID]Primitive),
		dirty:      true,
	}
}

// Add a primitive to the scene.
func (s *Scene) Add(p Primitive) PrimitiveID {
	id := s.nextID
	s.nextID++
	s.order = append(s.order, id)
	s.primitives[id] = p
	s.dirty = true
	return id
}

// Remove a primitive from the scene.
func (s *Scene) Remove(id PrimitiveID) error {
	if _, ok := s.primitives[id]; !ok {
		return unknownPrimitiveErr(id)
	}

	delete(s.primitives, id)
	for idx, other := range s.order {
		if other == id {
			s.order = append(s.order[:idx], s.order[idx+1:]...)
			break
		}
	}
	s.dirty = true
	return nil
}

// Translate moves a primitive by offset.
func (s *Scene) Translate(id PrimitiveID, offset types.Vec3) error {
	p, ok := s.primitives[id]
	if !ok {
		return unknownPrimitiveErr(id)
	}
	s.primitives[id] = p.Translated(offset)
	s.dirty = true
	return nil
}

// Replace swaps the primitive stored under id.
func (s *Scene) Replace(id PrimitiveID, p Primitive) error {
	if _, ok := s.primitives[id]; !ok {
		return unknownPrimitiveErr(id)
	}
	s.primitives[id] = p
	s.dirty = true
	return nil
}

// Get returns the primitive stored under id.
func (s *Scene) Get(id PrimitiveID) (Primitive, bool) {
	p, ok := s.primitives[id]
	return p, ok
}

// Len returns the number of primitives in the scene.
func (s *Scene) Len() int {
	return len(s.order)
}

// Dirty returns true if the scene changed since the last snapshot.
func (s *Scene) Dirty() bool {
	return s.dirty
}

// Snapshot returns an immutable view of the scene. If the scene changed since
// the previous call, the acceleration structure is rebuilt synchronously;
// otherwise the previous snapshot is returned.
func (s *Scene) Snapshot() *Snapshot {
	if !s.dirty && s.snapshot != nil {
		return s.snapshot
	}

	start := time.Now()
	prims := make([]Primitive, len(s.order))
	ids := make([]PrimitiveID, len(s.order))
	for idx, id := range s.order {
		prims[idx] = s.primitives[id]
		ids[idx] = id
	}

	refs := bvh.RefsFrom(prims)
	tree := bvh.Build(refs, s.BVHOptions)

	s.version++
	s.snapshot = &Snapshot{
		Version:    s.version,
		Background: s.Background,
		Light:      s.Light,
		Tree:       tree,
		Primitives: prims,
		IDs:        ids,
	}
	s.dirty = false

	rebuilds.Inc()
	rebuildDuration.Observe(time.Since(start).Seconds())
	s.logger.Infof(
		"rebuilt scene (version %d): %d primitives, %d nodes, %d leaves, depth %d in %s",
		s.version, tree.Stats.Primitives, tree.Stats.Nodes, tree.Stats.Leaves, tree.Stats.MaxDepth, tree.Stats.BuildTime,
	)
	return s.snapshot
}

// Invalidate forces the next Snapshot call to rebuild.
func (s *Scene) Invalidate() {
	s.dirty = true
}

func unknownPrimitiveErr(id PrimitiveID) error {
	return errors.New("primitive not found").
		WithType(ErrTypeUnknownPrimitive).
		WithTag("id", int(id))
}
