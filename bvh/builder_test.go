package bvh

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/scenelab/scenelab/types"
	"github.com/stretchr/testify/require"
)

func refsFromBoxes(boxes []AABB) []PrimitiveRef {
	refs := make([]PrimitiveRef, len(boxes))
	for idx, box := range boxes {
		refs[idx] = PrimitiveRef{Index: idx, Bounds: box, Centroid: box.Centroid()}
	}
	return refs
}

func randomBoxes(rng *rand.Rand, count int, spread, maxSize float32) []AABB {
	boxes := make([]AABB, count)
	for idx := range boxes {
		min := types.XYZ(
			rng.Float32()*spread-spread/2,
			rng.Float32()*spread-spread/2,
			rng.Float32()*spread-spread/2,
		)
		size := types.XYZ(rng.Float32()*maxSize, rng.Float32()*maxSize, rng.Float32()*maxSize)
		boxes[idx] = NewAABB(min, min.Add(size))
	}
	return boxes
}

func leafSizes(tree *BVH) []int {
	var sizes []int
	tree.Walk(func(node *Node, _ int) bool {
		if node.IsLeaf() {
			sizes = append(sizes, node.Count)
		}
		return true
	})
	return sizes
}

func TestBuildLeafPartitioning(t *testing.T) {
	refs := refsFromBoxes([]AABB{
		NewAABB(types.XYZ(-2, 0, -2), types.XYZ(-1, 1, -1)),
		NewAABB(types.XYZ(1, 0, -2), types.XYZ(2, 1, -1)),
		NewAABB(types.XYZ(-2, 0, 1), types.XYZ(-1, 1, 2)),
		NewAABB(types.XYZ(1, 0, 1), types.XYZ(2, 1, 2)),
	})

	specs := []struct {
		maxLeafItems int
		expLeaves    int
		expNodes     int
		expLeafSize  int
	}{
		// Partition each item in a single leaf
		{1, 4, 7, 1},
		// Partition two items in a single leaf
		{2, 2, 3, 2},
		// Everything fits in the root
		{4, 1, 1, 4},
	}

	for index, s := range specs {
		opts := DefaultOptions()
		opts.MaxLeafItems = s.maxLeafItems
		tree := Build(refs, opts)

		require.NoError(t, tree.Validate(refs), "spec %d", index)
		require.Equal(t, s.expLeaves, tree.Stats.Leaves, "spec %d", index)
		require.Equal(t, s.expNodes, tree.Stats.Nodes, "spec %d", index)
		for _, size := range leafSizes(tree) {
			require.Equal(t, s.expLeafSize, size, "spec %d", index)
		}
	}
}

func TestBuildInvariantsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	strategies := map[string]ScoreStrategy{
		"sah":    SurfaceAreaHeuristic,
		"median": nil,
	}

	for name, strategy := range strategies {
		for _, count := range []int{1, 2, 3, 5, 17, 100, 1000} {
			refs := refsFromBoxes(randomBoxes(rng, count, 100, 5))

			opts := DefaultOptions()
			opts.Strategy = strategy
			tree := Build(refs, opts)

			require.NoError(t, tree.Validate(refs), "%s/%d", name, count)

			// The leaf ranges form a permutation of the primitive set.
			indices := append([]int(nil), tree.Indices...)
			sort.Ints(indices)
			for idx, primIndex := range indices {
				require.Equal(t, idx, primIndex, "%s/%d", name, count)
			}

			total := 0
			for _, size := range leafSizes(tree) {
				total += size
			}
			require.Equal(t, count, total, "%s/%d", name, count)
		}
	}
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	refs := refsFromBoxes(randomBoxes(rng, 64, 10, 1))
	orig := append([]PrimitiveRef(nil), refs...)

	Build(refs, DefaultOptions())
	require.Equal(t, orig, refs)
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil, DefaultOptions())

	require.NotNil(t, tree.Root)
	require.True(t, tree.Root.IsLeaf())
	require.True(t, tree.Root.Bounds.IsEmpty())
	require.Equal(t, 0, tree.Root.Count)
	require.Empty(t, tree.Indices)
	require.NoError(t, tree.Validate(nil))
}

func TestBuildDegenerateInputsTerminate(t *testing.T) {
	point := NewAABB(types.XYZ(1, 1, 1))
	coincident := make([]AABB, 100)
	for idx := range coincident {
		coincident[idx] = point
	}

	collinear := make([]AABB, 100)
	for idx := range collinear {
		p := types.XYZ(float32(idx), 0, 0)
		collinear[idx] = NewAABB(p, p)
	}

	specs := map[string][]AABB{
		"coincident": coincident,
		"collinear":  collinear,
	}

	for name, boxes := range specs {
		for _, strategy := range []ScoreStrategy{SurfaceAreaHeuristic, nil} {
			refs := refsFromBoxes(boxes)
			opts := DefaultOptions()
			opts.Strategy = strategy
			opts.MaxLeafItems = 1
			opts.MaxDepth = 12

			tree := Build(refs, opts)
			require.NoError(t, tree.Validate(refs), name)
			require.LessOrEqual(t, tree.Stats.MaxDepth, opts.MaxDepth, name)
		}
	}
}

func TestBuildRespectsMaxDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	refs := refsFromBoxes(randomBoxes(rng, 500, 50, 1))

	opts := DefaultOptions()
	opts.MaxLeafItems = 1
	opts.MaxDepth = 3
	tree := Build(refs, opts)

	require.NoError(t, tree.Validate(refs))
	require.Equal(t, 3, tree.Stats.MaxDepth)
	tree.Walk(func(node *Node, depth int) bool {
		require.LessOrEqual(t, depth, 3)
		if depth == 3 {
			require.True(t, node.IsLeaf())
		}
		return true
	})
}

func TestValidateDetectsBrokenTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	refs := refsFromBoxes(randomBoxes(rng, 32, 10, 1))

	tree := Build(refs, DefaultOptions())
	require.NoError(t, tree.Validate(refs))

	// Loose bounds on the root.
	tree.Root.Bounds.Max[0] += 1
	require.Error(t, tree.Validate(refs))
	tree.Root.Bounds.Max[0] -= 1
	require.NoError(t, tree.Validate(refs))

	// Duplicate primitive in the index array.
	tree.Indices[0] = tree.Indices[1]
	require.Error(t, tree.Validate(refs))
}

func TestStrategyByName(t *testing.T) {
	strategy, err := StrategyByName("sah")
	require.NoError(t, err)
	require.Equal(t, SurfaceAreaHeuristic, strategy)

	strategy, err = StrategyByName("median")
	require.NoError(t, err)
	require.Nil(t, strategy)

	_, err = StrategyByName("octree")
	require.Error(t, err)
}
