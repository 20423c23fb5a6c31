// Package index defines the spatial index contract used by the local resolver.
//
// An index is built once over a slice of enclosing boxes and answers "which of
// these boxes overlap Q" queries. Results are positions into the slice the index
// was built from; the caller maps them back to its items.
//
// Two implementations are provided:
//
//   - kdtree: balanced k-d tree with per-node union boxes, sub-linear queries
//   - flat: linear scan, intended for cross-checking and tiny inputs
//
// Indexes are read-only after construction and safe for concurrent queries.
package index
