// Package testutil provides testing utilities for coarsesearch.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for random volumes, builders for the
// classic correctness scenarios and helpers for comparing pair sets.
//
// # Random Volumes
//
//	rng := testutil.NewRNG(seed)
//	items := rng.Items(1000, 0, 0, testutil.Space{Extent: 100, MaxSize: 2})
//
// # Scenarios
//
//	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 0)
//
// # Pair Sets
//
//	assert.Equal(t, testutil.PairSet(want), testutil.PairSet(got))
package testutil
