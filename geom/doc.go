// Package geom provides the bounding volumes used by the coarse search and the
// overlap predicates between them.
//
// A Volume is a closed variant over three shapes: Point, Sphere and Box. Every
// Volume reduces to its enclosing axis-aligned Box for indexing; the exact shape
// is only consulted by Intersects for the final overlap decision.
//
// All predicates use the closed-interval convention: volumes that merely touch
// (a shared plane, edge or point) overlap.
//
// Two-dimensional volumes live on the z = 0 plane. The third axis then contributes
// nothing to any distance or interval test, so every predicate is exact for 2-D
// input as well.
package geom
