package bvh

import (
	"math/rand"
	"testing"

	"github.com/scenelab/scenelab/types"
	"github.com/stretchr/testify/require"
)

func TestEmptyAABBIsInverted(t *testing.T) {
	box := EmptyAABB()

	require.True(t, box.IsEmpty())
	for axis := 0; axis < 3; axis++ {
		require.Greater(t, box.Min[axis], float32(0))
		require.Less(t, box.Max[axis], float32(0))
		require.Greater(t, box.Min[axis], box.Max[axis])
	}
}

func TestExpandWithPoint(t *testing.T) {
	box := EmptyAABB()
	box.ExpandPoint(types.XYZ(1, 2, 3))

	require.False(t, box.IsEmpty())
	require.Equal(t, types.XYZ(1, 2, 3), box.Min)
	require.Equal(t, types.XYZ(1, 2, 3), box.Max)
	require.Equal(t, types.Vec3{}, box.Extent())
}

func TestExpandWithMultiplePoints(t *testing.T) {
	box := EmptyAABB()
	box.ExpandPoint(types.XYZ(0, 0, 0))
	box.ExpandPoint(types.XYZ(2, 4, 6))
	box.ExpandPoint(types.XYZ(-1, -2, -3))

	require.Equal(t, types.XYZ(-1, -2, -3), box.Min)
	require.Equal(t, types.XYZ(2, 4, 6), box.Max)
}

func TestExpandWithAABB(t *testing.T) {
	other := NewAABB(types.XYZ(-5, -5, -5), types.XYZ(5, 5, 5))

	box := EmptyAABB()
	box.ExpandPoint(types.XYZ(0, 0, 0))
	box.Expand(other)

	require.Equal(t, types.XYZ(-5, -5, -5), box.Min)
	require.Equal(t, types.XYZ(5, 5, 5), box.Max)

	// Expanding an empty box with another box yields that box.
	empty := EmptyAABB()
	empty.Expand(other)
	require.Equal(t, other, empty)
}

func TestUnionIsCommutativeAndAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randomBox := func() AABB {
		return NewAABB(
			types.XYZ(rng.Float32()*20-10, rng.Float32()*20-10, rng.Float32()*20-10),
			types.XYZ(rng.Float32()*20-10, rng.Float32()*20-10, rng.Float32()*20-10),
		)
	}

	for i := 0; i < 100; i++ {
		a, b, c := randomBox(), randomBox(), randomBox()

		require.Equal(t, Union(a, b), Union(b, a))
		require.Equal(t, Union(Union(a, b), c), Union(a, Union(b, c)))

		ab := EmptyAABB()
		ab.Expand(a)
		ab.Expand(b)
		ba := EmptyAABB()
		ba.Expand(b)
		ba.Expand(a)
		require.Equal(t, ab, ba)
	}
}

func TestCentroid(t *testing.T) {
	specs := []struct {
		min, max types.Vec3
		exp      types.Vec3
	}{
		{types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1), types.XYZ(0, 0, 0)},
		{types.XYZ(0, 0, 0), types.XYZ(4, 6, 8), types.XYZ(2, 3, 4)},
		{types.XYZ(-10, -20, -30), types.XYZ(-5, -10, -15), types.XYZ(-7.5, -15, -22.5)},
	}

	for index, s := range specs {
		box := NewAABB(s.min, s.max)
		require.True(t, box.Centroid().ApproxEqual(s.exp, 1e-4), "spec %d", index)
	}
}

func TestExtentAndSurfaceArea(t *testing.T) {
	specs := []struct {
		min, max  types.Vec3
		expExtent types.Vec3
		expArea   float32
	}{
		// 2 * (3*6 + 6*9 + 9*3)
		{types.XYZ(-1, -2, -3), types.XYZ(2, 4, 6), types.XYZ(3, 6, 9), 198},
		{types.XYZ(0, 0, 0), types.XYZ(1, 1, 1), types.XYZ(1, 1, 1), 6},
		{types.XYZ(0, 0, 0), types.XYZ(2, 3, 4), types.XYZ(2, 3, 4), 52},
		// Flat box: degenerate in a single axis still has area.
		{types.XYZ(0, 0, 0), types.XYZ(2, 2, 0), types.XYZ(2, 2, 0), 8},
		// Degenerate in two axes.
		{types.XYZ(0, 0, 0), types.XYZ(2, 0, 0), types.XYZ(2, 0, 0), 0},
		{types.XYZ(5, 5, 5), types.XYZ(5, 5, 5), types.XYZ(0, 0, 0), 0},
		{types.XYZ(-1000, -1000, -1000), types.XYZ(1000, 1000, 1000), types.XYZ(2000, 2000, 2000), 24000000},
	}

	for index, s := range specs {
		box := NewAABB(s.min, s.max)
		require.True(t, box.Extent().ApproxEqual(s.expExtent, 1e-4), "spec %d", index)
		require.InDelta(t, s.expArea, box.SurfaceArea(), 1, "spec %d", index)
	}

	small := NewAABB(types.XYZ(0, 0, 0), types.XYZ(0.0001, 0.0001, 0.0001))
	require.Greater(t, small.SurfaceArea(), float32(0))
	require.Less(t, small.SurfaceArea(), float32(0.001))
}

func TestSurfaceAreaZeroOnlyWhenDegenerateInTwoAxes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		min := types.XYZ(rng.Float32(), rng.Float32(), rng.Float32())
		max := min
		flat := 0
		for axis := 0; axis < 3; axis++ {
			if rng.Intn(2) == 0 {
				flat++
				continue
			}
			max[axis] += 0.5 + rng.Float32()
		}

		area := NewAABB(min, max).SurfaceArea()
		require.GreaterOrEqual(t, area, float32(0))
		if flat >= 2 {
			require.Equal(t, float32(0), area)
		} else {
			require.Greater(t, area, float32(0))
		}
	}
}

func TestLongestAxis(t *testing.T) {
	specs := []struct {
		max types.Vec3
		exp Axis
	}{
		{types.XYZ(10, 5, 3), XAxis},
		{types.XYZ(3, 10, 5), YAxis},
		{types.XYZ(3, 5, 10), ZAxis},
		// Ties resolve to the later axis.
		{types.XYZ(5, 5, 5), ZAxis},
		{types.XYZ(5, 5, 1), YAxis},
	}

	for index, s := range specs {
		box := NewAABB(types.XYZ(0, 0, 0), s.max)
		require.Equal(t, s.exp, box.LongestAxis(), "spec %d", index)
	}
}

func TestRayBoxIntersection(t *testing.T) {
	box := NewAABB(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))

	specs := []struct {
		origin, dir types.Vec3
		expHit      bool
		expNear     float32
	}{
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), true, 4},
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, 1), false, 0},
		{types.XYZ(2, 0, 5), types.XYZ(0, 0, -1), false, 0},
		// Parallel rays on a slab boundary still hit.
		{types.XYZ(1, 0, 5), types.XYZ(0, 0, -1), true, 4},
		{types.XYZ(-1, 0, 5), types.XYZ(0, 0, -1), true, 4},
		// Negative zero direction components behave like positive ones.
		{types.XYZ(1, 0, 5), types.XYZ(float32(negZero()), 0, -1), true, 4},
		// Origin inside the box.
		{types.XYZ(0, 0, 0), types.XYZ(1, 1, 0), true, 0},
	}

	for index, s := range specs {
		tNear, _, ok := box.Intersect(NewRay(s.origin, s.dir), 0, 100)
		require.Equal(t, s.expHit, ok, "spec %d", index)
		if ok {
			require.InDelta(t, s.expNear, tNear, 1e-5, "spec %d", index)
		}
	}

	// The parametric range clips the hit.
	_, _, ok := box.Intersect(NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1)), 0, 3)
	require.False(t, ok)
}

func negZero() float64 {
	var z float64
	return -z
}
