package bvh

// Initial traversal stack capacity; balanced trees over millions of
// primitives stay well below this depth.
const stackSize = 64

type stackEntry struct {
	node  *Node
	tNear float32
}

// Nearest returns the closest primitive hit with a distance in [tMin, tMax].
//
// Children are visited in order of their near intersection distance and a
// child whose near distance lies beyond the closest hit found so far is
// skipped.
func (t *BVH) Nearest(ray Ray, tMin, tMax float32, isect Intersector) (Hit, bool) {
	var best Hit
	found := false

	if t.Root == nil || t.Root.Bounds.IsEmpty() {
		return best, false
	}

	tNear, _, ok := t.Root.Bounds.Intersect(ray, tMin, tMax)
	if !ok {
		return best, false
	}

	var stackBuf [stackSize]stackEntry
	stack := append(stackBuf[:0], stackEntry{t.Root, tNear})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// The closest hit may have moved since this node was queued.
		if e.tNear > tMax {
			continue
		}

		node := e.node
		if node.IsLeaf() {
			for _, primIndex := range t.Indices[node.First : node.First+node.Count] {
				hit, ok := isect.Intersect(primIndex, ray, tMin, tMax)
				if ok && hit.Distance <= tMax {
					best = hit
					found = true
					tMax = hit.Distance
				}
			}
			continue
		}

		lNear, _, lHit := node.Left.Bounds.Intersect(ray, tMin, tMax)
		rNear, _, rHit := node.Right.Bounds.Intersect(ray, tMin, tMax)
		switch {
		case lHit && rHit:
			// Push the farther child first so the closer one is popped next.
			if lNear <= rNear {
				stack = append(stack, stackEntry{node.Right, rNear}, stackEntry{node.Left, lNear})
			} else {
				stack = append(stack, stackEntry{node.Left, lNear}, stackEntry{node.Right, rNear})
			}
		case lHit:
			stack = append(stack, stackEntry{node.Left, lNear})
		case rHit:
			stack = append(stack, stackEntry{node.Right, rNear})
		}
	}

	return best, found
}

// Any reports whether any primitive intersects the ray within [tMin, tMax].
// Traversal stops at the first reported hit.
func (t *BVH) Any(ray Ray, tMin, tMax float32, isect Intersector) bool {
	if t.Root == nil || t.Root.Bounds.IsEmpty() {
		return false
	}

	if _, _, ok := t.Root.Bounds.Intersect(ray, tMin, tMax); !ok {
		return false
	}

	var stackBuf [stackSize]*Node
	stack := append(stackBuf[:0], t.Root)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsLeaf() {
			for _, primIndex := range t.Indices[node.First : node.First+node.Count] {
				if _, ok := isect.Intersect(primIndex, ray, tMin, tMax); ok {
					return true
				}
			}
			continue
		}

		if _, _, ok := node.Right.Bounds.Intersect(ray, tMin, tMax); ok {
			stack = append(stack, node.Right)
		}
		if _, _, ok := node.Left.Bounds.Intersect(ray, tMin, tMax); ok {
			stack = append(stack, node.Left)
		}
	}

	return false
}
