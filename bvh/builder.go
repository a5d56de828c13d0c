package bvh

import (
	"math"
	"sort"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/log"
	"github.com/scenelab/scenelab/types"
)

const (
	// Default number of primitives at or below which a node becomes a leaf.
	DefaultMaxLeafItems = 4

	// Default tree depth bound.
	DefaultMaxDepth = 32

	// Default number of candidate split planes per node.
	DefaultBins = 16

	// Error types reported by this package.
	ErrTypeInvalidTree     = "invalid_bvh"
	ErrTypeUnknownStrategy = "unknown_split_strategy"
)

// A split scoring strategy that uses the surface area heuristic (SAH).
var SurfaceAreaHeuristic ScoreStrategy = surfaceAreaHeuristic{}

// StrategyByName maps "sah" and "median" to a split strategy. Median splits
// are selected with a nil strategy.
func StrategyByName(name string) (ScoreStrategy, error) {
	switch name {
	case "sah", "":
		return SurfaceAreaHeuristic, nil
	case "median":
		return nil, nil
	}
	return nil, errors.New("unknown split strategy").
		WithType(ErrTypeUnknownStrategy).
		WithTag("strategy", name)
}

// PrimitiveRef references a caller-owned primitive by index together with
// its precomputed bounds and centroid.
type PrimitiveRef struct {
	Index    int
	Bounds   AABB
	Centroid types.Vec3
}

// The BoundedVolume interface is implemented by all primitives that can be
// partitioned by the bvh builder.
type BoundedVolume interface {
	Bounds() AABB
	Centroid() types.Vec3
}

// RefsFrom builds a reference list for the given volumes using their slice
// position as the primitive index.
func RefsFrom[T BoundedVolume](volumes []T) []PrimitiveRef {
	refs := make([]PrimitiveRef, len(volumes))
	for idx, vol := range volumes {
		refs[idx] = PrimitiveRef{
			Index:    idx,
			Bounds:   vol.Bounds(),
			Centroid: vol.Centroid(),
		}
	}
	return refs
}

// A split scoring strategy. Lower scores are better.
type ScoreStrategy interface {
	// Calculate a score for splitting refs at splitPoint along a particular axis.
	ScoreSplit(refs []PrimitiveRef, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for keeping all refs in a single leaf.
	ScorePartition(refs []PrimitiveRef) (score float32)
}

// Options control BVH construction.
type Options struct {
	// Nodes with this many primitives or less become leaves.
	MaxLeafItems int

	// Nodes at this depth become leaves regardless of their size.
	MaxDepth int

	// The split scoring strategy. A nil strategy selects median splits.
	Strategy ScoreStrategy

	// Number of candidate split planes evaluated per node.
	Bins int
}

// DefaultOptions returns SAH construction options.
func DefaultOptions() Options {
	return Options{
		MaxLeafItems: DefaultMaxLeafItems,
		MaxDepth:     DefaultMaxDepth,
		Strategy:     SurfaceAreaHeuristic,
		Bins:         DefaultBins,
	}
}

type builder struct {
	logger log.Logger

	opts Options

	// Working copy of the references; reordered in place so that every
	// leaf covers a contiguous range.
	refs []PrimitiveRef

	stats Stats
}

// Build constructs a BVH over refs. The input slice is not modified; the
// returned tree's Indices hold the primitive indices in leaf order.
//
// With the SAH strategy each node evaluates opts.Bins candidate planes along
// the longest axis of its bounds using the score:
//
// left count * left BBOX area + right count * right BBOX area
//
// and keeps the node as a leaf when count * BBOX area scores strictly better
// than every candidate. When every candidate leaves one side empty, or the node
// bounds have no area, the builder falls back to a median split which always
// makes progress.
func Build(refs []PrimitiveRef, opts Options) *BVH {
	if opts.MaxLeafItems < 1 {
		opts.MaxLeafItems = DefaultMaxLeafItems
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Bins < 2 {
		opts.Bins = DefaultBins
	}

	b := &builder{
		logger: log.New("bvh"),
		opts:   opts,
		refs:   append([]PrimitiveRef(nil), refs...),
		stats: Stats{
			Primitives: len(refs),
		},
	}

	start := time.Now()
	root := b.partition(0, len(b.refs), 0)
	b.stats.BuildTime = time.Since(start)

	indices := make([]int, len(b.refs))
	for idx, ref := range b.refs {
		indices[idx] = ref.Index
	}

	b.logger.Debugf(
		"BVH tree build time: %d ms, primitives: %d, maxDepth: %d, nodes: %d, leafs: %d",
		b.stats.BuildTime.Milliseconds(),
		b.stats.Primitives, b.stats.MaxDepth, b.stats.Nodes, b.stats.Leaves,
	)

	return &BVH{
		Root:    root,
		Indices: indices,
		Stats:   b.stats,
	}
}

// Partition refs[first:first+count] and return the subtree root.
func (b *builder) partition(first, count, depth int) *Node {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}
	b.stats.Nodes++

	workList := b.refs[first : first+count]
	node := &Node{Bounds: EmptyAABB()}
	for _, ref := range workList {
		node.Bounds.Expand(ref.Bounds)
	}

	// Do we have enough items for partitioning? If not create a leaf
	if count <= b.opts.MaxLeafItems || depth >= b.opts.MaxDepth {
		return b.createLeaf(node, first, count)
	}

	axis := node.Bounds.LongestAxis()

	// Flat or collapsed nodes give SAH nothing to compare.
	var leftCount int
	if b.opts.Strategy == nil || !(node.Bounds.SurfaceArea() > 0) {
		leftCount = medianSplit(workList, axis)
	} else {
		splitPoint, ok, keepLeaf := b.bestSplit(workList, axis)
		switch {
		case keepLeaf:
			return b.createLeaf(node, first, count)
		case ok:
			leftCount = partitionRefs(workList, axis, splitPoint)
		default:
			leftCount = medianSplit(workList, axis)
		}
	}

	node.Left = b.partition(first, leftCount, depth+1)
	node.Right = b.partition(first+leftCount, count-leftCount, depth+1)
	return node
}

// Evaluate evenly spaced split planes across the centroid range of workList.
// The returned flags report whether a usable plane was found and whether
// keeping the node as a leaf scores better than any split.
func (b *builder) bestSplit(workList []PrimitiveRef, axis Axis) (splitPoint float32, ok, keepLeaf bool) {
	cmin, cmax := centroidRange(workList, axis)
	if !(cmax > cmin) {
		return 0, false, false
	}

	var bestScore float32 = math.MaxFloat32
	step := (cmax - cmin) / float32(b.opts.Bins)
	for bin := 1; bin < b.opts.Bins; bin++ {
		candidate := cmin + step*float32(bin)
		lCount, rCount, score := b.opts.Strategy.ScoreSplit(workList, axis, candidate)
		if lCount == 0 || rCount == 0 {
			continue
		}
		if score < bestScore {
			bestScore = score
			splitPoint = candidate
			ok = true
		}
	}

	if !ok {
		return 0, false, false
	}

	if b.opts.Strategy.ScorePartition(workList) < bestScore {
		return splitPoint, true, true
	}
	return splitPoint, true, false
}

// Sort workList by centroid along axis and return the size of the left half.
func medianSplit(workList []PrimitiveRef, axis Axis) int {
	sort.SliceStable(workList, func(i, j int) bool {
		return workList[i].Centroid[axis] < workList[j].Centroid[axis]
	})
	return len(workList) / 2
}

// Setup node as a leaf covering refs[first:first+count].
func (b *builder) createLeaf(node *Node, first, count int) *Node {
	node.First = first
	node.Count = count

	b.stats.Leaves++
	return node
}

// Move refs whose centroid lies below splitPoint to the front of workList
// and return their count.
func partitionRefs(workList []PrimitiveRef, axis Axis, splitPoint float32) int {
	left := 0
	for idx := range workList {
		if workList[idx].Centroid[axis] < splitPoint {
			workList[left], workList[idx] = workList[idx], workList[left]
			left++
		}
	}
	return left
}

func centroidRange(workList []PrimitiveRef, axis Axis) (cmin, cmax float32) {
	cmin, cmax = math.MaxFloat32, -math.MaxFloat32
	for _, ref := range workList {
		c := ref.Centroid[axis]
		if c < cmin {
			cmin = c
		}
		if c > cmax {
			cmax = c
		}
	}
	return cmin, cmax
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + right count * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(refs []PrimitiveRef, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	left := EmptyAABB()
	right := EmptyAABB()

	for _, ref := range refs {
		if ref.Centroid[axis] < splitPoint {
			leftCount++
			left.Expand(ref.Bounds)
		} else {
			rightCount++
			right.Expand(ref.Bounds)
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*left.SurfaceArea() + float32(rightCount)*right.SurfaceArea()
	return leftCount, rightCount, score
}

// Calculate score for a partitioned refs list using formula:
// count * BBOX area
//
// If the list is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(refs []PrimitiveRef) (score float32) {
	if len(refs) == 0 {
		return math.MaxFloat32
	}

	bounds := EmptyAABB()
	for _, ref := range refs {
		bounds.Expand(ref.Bounds)
	}
	return float32(len(refs)) * bounds.SurfaceArea()
}
