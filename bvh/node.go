package bvh

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Node is a BVH tree node. Internal nodes own exactly two children; leaves
// reference a contiguous range of the tree's Indices array.
type Node struct {
	Bounds AABB

	Left  *Node
	Right *Node

	// Leaf primitive range: Indices[First : First+Count].
	First int
	Count int
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil
}

// Stats collected while building a BVH.
type Stats struct {
	Primitives int
	Nodes      int
	Leaves     int
	MaxDepth   int
	BuildTime  time.Duration
}

// BVH is an immutable bounding volume hierarchy. It is safe to query from any
// number of readers; rebuilding produces a new BVH.
type BVH struct {
	Root *Node

	// Primitive indices reordered so that each leaf range is contiguous.
	Indices []int

	Stats Stats
}

// A callback invoked by Walk for every node. Returning false skips the
// children of an internal node.
type WalkFunc func(node *Node, depth int) bool

// Walk visits the tree in depth-first pre-order.
func (t *BVH) Walk(fn WalkFunc) {
	if t.Root == nil {
		return
	}

	type entry struct {
		node  *Node
		depth int
	}
	stack := []entry{{t.Root, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(e.node, e.depth) || e.node.IsLeaf() {
			continue
		}
		stack = append(stack, entry{e.node.Right, e.depth + 1}, entry{e.node.Left, e.depth + 1})
	}
}

// Validate checks that every node's bounds equal the exact union of its
// children (or of its leaf primitives) and that the leaf ranges partition the
// index array into a permutation of the primitive set. The refs must be the
// ones the tree was built from.
func (t *BVH) Validate(refs []PrimitiveRef) error {
	if t.Root == nil {
		return errors.New("bvh has no root").WithType(ErrTypeInvalidTree)
	}
	if len(t.Indices) != len(refs) {
		return errors.New("index array length mismatch").
			WithType(ErrTypeInvalidTree).
			WithTag("indices", len(t.Indices)).
			WithTag("primitives", len(refs))
	}

	byIndex := make(map[int]AABB, len(refs))
	for _, ref := range refs {
		byIndex[ref.Index] = ref.Bounds
	}

	seen := make(map[int]bool, len(refs))
	covered := 0
	_, err := t.validateNode(t.Root, byIndex, seen, &covered)
	if err != nil {
		return err
	}
	if covered != len(t.Indices) {
		return errors.New("leaf ranges do not cover the index array").
			WithType(ErrTypeInvalidTree).
			WithTag("covered", covered).
			WithTag("indices", len(t.Indices))
	}
	return nil
}

func (t *BVH) validateNode(n *Node, byIndex map[int]AABB, seen map[int]bool, covered *int) (AABB, error) {
	expected := EmptyAABB()

	if n.IsLeaf() {
		if n.Right != nil {
			return expected, errors.New("node owns a single child").WithType(ErrTypeInvalidTree)
		}
		if n.First < 0 || n.First+n.Count > len(t.Indices) {
			return expected, errors.New("leaf range out of bounds").
				WithType(ErrTypeInvalidTree).
				WithTag("first", n.First).
				WithTag("count", n.Count)
		}
		for _, primIndex := range t.Indices[n.First : n.First+n.Count] {
			bounds, ok := byIndex[primIndex]
			if !ok {
				return expected, errors.New("leaf references unknown primitive").
					WithType(ErrTypeInvalidTree).
					WithTag("primitive", primIndex)
			}
			if seen[primIndex] {
				return expected, errors.New("primitive referenced by more than one leaf slot").
					WithType(ErrTypeInvalidTree).
					WithTag("primitive", primIndex)
			}
			seen[primIndex] = true
			expected.Expand(bounds)
		}
		*covered += n.Count
	} else {
		if n.Right == nil {
			return expected, errors.New("node owns a single child").WithType(ErrTypeInvalidTree)
		}
		left, err := t.validateNode(n.Left, byIndex, seen, covered)
		if err != nil {
			return expected, err
		}
		right, err := t.validateNode(n.Right, byIndex, seen, covered)
		if err != nil {
			return expected, err
		}
		expected = Union(left, right)
	}

	if expected != n.Bounds {
		return expected, errors.New("node bounds differ from the union of their contents").
			WithType(ErrTypeInvalidTree).
			WithTag("bounds", n.Bounds).
			WithTag("expected", expected)
	}
	return expected, nil
}
