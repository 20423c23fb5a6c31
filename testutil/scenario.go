package testutil

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
)

// EightAroundOne builds the grid scenario: eight outer volumes at unit spacing on
// the 3x3 grid of the z = 0 plane with the centre cell missing (ids 1-4, 6-9,
// owned by outerProc), and one inner volume at (1, 1, 0) with id 5 owned by
// innerProc. Every volume uses the same radius.
func EightAroundOne(outer, inner geom.Kind, radius float64, outerProc, innerProc int) (a, b []core.Item) {
	id := uint64(1)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x == 1 && y == 1 {
				id++
				continue
			}
			v := Generate(outer, float64(x), float64(y), 0, radius)
			a = append(a, core.NewItem(v, id, outerProc))
			id++
		}
	}
	b = []core.Item{core.NewItem(Generate(inner, 1, 1, 0, radius), 5, innerProc)}
	return a, b
}

// TwoSpheres returns one sphere at the origin (id 1) and one at (distance, 0, 0)
// (id 2), both owned by proc.
func TwoSpheres(distance, radius float64, proc int) (a, b []core.Item) {
	a = []core.Item{core.NewItem(geom.NewSphere(mgl64.Vec3{}, radius), 1, proc)}
	b = []core.Item{core.NewItem(geom.NewSphere(mgl64.Vec3{distance, 0, 0}, radius), 2, proc)}
	return a, b
}

// Line returns the volumes contributed by rank to the line scenario: each rank
// holds one volume of global id 1 at coordinate rank along axis. Even ranks
// contribute to collection A, odd ranks to collection B.
func Line(kind geom.Kind, axis int, radius float64, rank int) (a, b []core.Item) {
	var c [geom.Dims]float64
	c[axis] = float64(rank)
	it := core.NewItem(Generate(kind, c[0], c[1], c[2], radius), 1, rank)
	if rank%2 == 0 {
		return []core.Item{it}, nil
	}
	return nil, []core.Item{it}
}

// PairSet converts pairs into a set for order-independent comparison.
func PairSet(pairs []core.Pair) map[core.Pair]struct{} {
	set := make(map[core.Pair]struct{}, len(pairs))
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	return set
}

// SwapAll returns the pairs with every component exchanged.
func SwapAll(pairs []core.Pair) []core.Pair {
	out := make([]core.Pair, len(pairs))
	for i, p := range pairs {
		out[i] = p.Swap()
	}
	return out
}

// Merge unions per-rank results into one sorted, duplicate-free slice.
func Merge(perRank ...[]core.Pair) []core.Pair {
	var out []core.Pair
	for _, pairs := range perRank {
		out = append(out, pairs...)
	}
	slices.SortFunc(out, core.Pair.Compare)
	return slices.Compact(out)
}

// BruteForce returns every overlapping pair of a and b by exhaustive comparison.
func BruteForce(a, b []core.Item) []core.Pair {
	var out []core.Pair
	for _, x := range a {
		for _, y := range b {
			if geom.Intersects(x.Volume, y.Volume) {
				out = append(out, core.Pair{A: x.Ident, B: y.Ident})
			}
		}
	}
	slices.SortFunc(out, core.Pair.Compare)
	return slices.Compact(out)
}
