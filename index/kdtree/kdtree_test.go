package kdtree

import (
	"iter"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index/flat"
	"github.com/hupe1980/coarsesearch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundsOf(vols []geom.Volume) []geom.Box {
	boxes := make([]geom.Box, len(vols))
	for i, v := range vols {
		boxes[i] = v.Bounds()
	}
	return boxes
}

func sorted(it iter.Seq[int]) []int {
	got := slices.Collect(it)
	slices.Sort(got)
	return got
}

func TestTree(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		tree := New(nil)
		assert.Equal(t, 0, tree.Len())
		assert.Equal(t, 0, tree.Stats().Depth)
		assert.True(t, tree.Bounds().Empty())
		assert.Empty(t, slices.Collect(tree.Query(geom.Box{Max: mgl64.Vec3{1, 1, 1}})))
	})

	t.Run("SingleLeaf", func(t *testing.T) {
		boxes := boundsOf([]geom.Volume{geom.Point2(0, 0), geom.Point2(1, 0), geom.Point2(5, 5)})
		tree := New(boxes)
		assert.Equal(t, 1, tree.Stats().Depth)
		assert.Equal(t, "KDTree", tree.Name())

		got := sorted(tree.Query(geom.Box{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 0, 0}}))
		assert.Equal(t, []int{0, 1}, got)
	})

	t.Run("MatchesFlat", func(t *testing.T) {
		rng := testutil.NewRNG(4711)
		boxes := boundsOf(rng.Volumes(2000, testutil.Space{Extent: 100, MaxSize: 3}))
		queries := boundsOf(rng.Volumes(200, testutil.Space{Extent: 100, MaxSize: 6}))

		for _, leafSize := range []int{1, 4, 8, 32} {
			tree := New(boxes, func(o *Options) { o.LeafSize = leafSize })
			ref := flat.New(boxes)
			assert.Equal(t, ref.Bounds(), tree.Bounds())

			for _, q := range queries {
				require.Equal(t, sorted(ref.Query(q)), sorted(tree.Query(q)), "leafSize=%d q=%v", leafSize, q)
			}
		}
	})

	t.Run("CoincidentCenters", func(t *testing.T) {
		// Nested boxes share one centre; the tree must still split and find all.
		var boxes []geom.Box
		for i := 1; i <= 50; i++ {
			h := float64(i)
			boxes = append(boxes, geom.Box{Min: mgl64.Vec3{-h, -h, -h}, Max: mgl64.Vec3{h, h, h}})
		}
		tree := New(boxes, func(o *Options) { o.LeafSize = 2 })
		assert.Greater(t, tree.Stats().Depth, 1)

		got := sorted(tree.Query(geom.Box{Min: mgl64.Vec3{30, 0, 0}, Max: mgl64.Vec3{30, 0, 0}}))
		want := make([]int, 0, 21)
		for i := 29; i < 50; i++ {
			want = append(want, i)
		}
		assert.Equal(t, want, got)
	})

	t.Run("EarlyStop", func(t *testing.T) {
		boxes := boundsOf(testutil.NewRNG(1).Volumes(100, testutil.Space{Extent: 1, MaxSize: 1}))
		tree := New(boxes, func(o *Options) { o.LeafSize = 3 })
		n := 0
		for range tree.Query(tree.Bounds()) {
			n++
			if n == 5 {
				break
			}
		}
		assert.Equal(t, 5, n)
	})
}

func TestStats(t *testing.T) {
	boxes := boundsOf(testutil.NewRNG(9).Volumes(1000, testutil.Space{Extent: 50, MaxSize: 1}))
	tree := New(boxes, func(o *Options) { o.LeafSize = 10 })
	s := tree.Stats()

	assert.Equal(t, 1000, s.Boxes)
	assert.Equal(t, 10, s.LeafSize)
	assert.LessOrEqual(t, s.MaxLeaf, 10)
	assert.Equal(t, s.Nodes, 2*s.Leaves-1, "full binary tree")
	// Median splits keep the tree balanced.
	assert.LessOrEqual(t, s.Depth, 9)
}

func TestLeafSizeClamp(t *testing.T) {
	boxes := boundsOf([]geom.Volume{geom.Point2(0, 0), geom.Point2(1, 1)})
	tree := New(boxes, func(o *Options) { o.LeafSize = 0 })
	assert.Equal(t, 1, tree.Stats().LeafSize)
	assert.Equal(t, 2, tree.Stats().Depth)
}
