package searcher

import (
	"context"
	"slices"
	"testing"

	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/resource"
	"github.com/hupe1980/coarsesearch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedPairs(t *testing.T, a, b []core.Item, opts Options) []core.Pair {
	t.Helper()
	got, err := ResolvePairs(context.Background(), a, b, opts)
	require.NoError(t, err)
	slices.SortFunc(got, core.Pair.Compare)
	return got
}

func TestResolveGrid(t *testing.T) {
	tests := []struct {
		name         string
		outer, inner geom.Kind
		radius       float64
		want         int
	}{
		{"SphereEightSpheres", geom.KindSphere, geom.KindSphere, 0.708, 8},
		{"SphereFourOfEightSpheres", geom.KindSphere, geom.KindSphere, 0.706, 4},
		{"SphereNoPoints", geom.KindPoint, geom.KindSphere, 0.99, 0},
		{"SphereFourPoints", geom.KindPoint, geom.KindSphere, 1.41, 4},
		{"SphereEightPoints", geom.KindPoint, geom.KindSphere, 1.42, 8},
		{"BoxNoPoints", geom.KindPoint, geom.KindBox, 0.99, 0},
		{"BoxEightPoints", geom.KindPoint, geom.KindBox, 1.01, 8},
		{"PointNoBoxes", geom.KindBox, geom.KindPoint, 0.99, 0},
		{"PointEightBoxes", geom.KindBox, geom.KindPoint, 1.01, 8},
	}

	for _, tt := range tests {
		for _, m := range []index.Method{index.KDTree, index.Linear} {
			t.Run(tt.name+"/"+m.String(), func(t *testing.T) {
				a, b := testutil.EightAroundOne(tt.outer, tt.inner, tt.radius, 0, 0)
				got := sortedPairs(t, a, b, Options{Method: m})
				assert.Len(t, got, tt.want)
				for _, p := range got {
					assert.Equal(t, uint64(5), p.B.ID)
				}
			})
		}
	}
}

func TestResolveOrientation(t *testing.T) {
	// A is the larger side here, so B gets indexed; pairs must still be (A, B).
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 1)
	got := sortedPairs(t, a, b, Options{})
	for _, p := range got {
		assert.Equal(t, 0, p.A.Proc)
		assert.Equal(t, 1, p.B.Proc)
	}

	swapped := sortedPairs(t, b, a, Options{})
	want := testutil.SwapAll(got)
	slices.SortFunc(want, core.Pair.Compare)
	assert.Equal(t, want, swapped)
}

func TestResolveMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)
	space := testutil.Space{Extent: 40, MaxSize: 2}
	a := rng.Items(1500, 0, 0, space)
	b := rng.Items(900, 10000, 0, space)
	want := testutil.BruteForce(a, b)
	require.NotEmpty(t, want)

	for _, opts := range []Options{
		{Method: index.KDTree},
		{Method: index.KDTree, LeafSize: 2},
		{Method: index.Linear},
		{Method: index.KDTree, Workers: 4},
		{Method: index.Linear, Workers: 3, Controller: resource.NewController(resource.Config{MaxWorkers: 1})},
	} {
		got := sortedPairs(t, a, b, opts)
		assert.Equal(t, want, got, "%+v", opts)
	}
}

func TestResolveEmpty(t *testing.T) {
	a, _ := testutil.TwoSpheres(1, 1, 0)
	st, err := Resolve(context.Background(), a, nil, Options{}, func(Match) { t.Fatal("unexpected match") })
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestResolveUnknownMethod(t *testing.T) {
	a, b := testutil.TwoSpheres(1, 1, 0)
	_, err := ResolvePairs(context.Background(), a, b, Options{Method: index.Method(9)})
	assert.ErrorIs(t, err, index.ErrUnknownMethod)
}

func TestResolveParallelCancelled(t *testing.T) {
	rng := testutil.NewRNG(1)
	a := rng.Items(2000, 0, 0, testutil.Space{Extent: 10, MaxSize: 1})
	b := rng.Items(1000, 5000, 0, testutil.Space{Extent: 10, MaxSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Resolve(ctx, a, b, Options{Workers: 4}, func(Match) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveStats(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.706, 0, 0)
	st, err := Resolve(context.Background(), a, b, Options{}, func(Match) {})
	require.NoError(t, err)

	assert.Equal(t, "KDTree", st.Index)
	assert.Equal(t, 1, st.Depth)
	assert.Equal(t, 1, st.Leaves)
	assert.Equal(t, 1, st.Indexed)
	assert.Equal(t, 8, st.Queried)
	// Diagonal neighbours pass the box test but fail the sphere test.
	assert.Equal(t, 8, st.Candidates)
	assert.Equal(t, 4, st.Matches)
}

func TestResolveStatsLinear(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.706, 0, 0)
	st, err := Resolve(context.Background(), a, b, Options{Method: index.Linear}, func(Match) {})
	require.NoError(t, err)

	assert.Equal(t, "Flat", st.Index)
	assert.Zero(t, st.Depth)
	assert.Zero(t, st.Leaves)
	assert.Equal(t, 4, st.Matches)
}

func TestSearcherPool(t *testing.T) {
	s := AcquireSearcher()
	s.Matches = append(s.Matches, Match{A: 1})
	s.OpsPerformed = 3
	ReleaseSearcher(s)

	s = AcquireSearcher()
	assert.Empty(t, s.Matches)
	assert.Zero(t, s.OpsPerformed)
	ReleaseSearcher(s)
}
