package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Dims is the number of coordinate axes carried by every volume.
const Dims = 3

// Box is an axis-aligned bounding box with inclusive bounds.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyBox returns the identity element for Union: a box with inverted infinite
// bounds that overlaps nothing.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// Empty reports whether b encloses no point at all.
func (b Box) Empty() bool {
	for d := 0; d < Dims; d++ {
		if b.Min[d] > b.Max[d] {
			return true
		}
	}
	return false
}

// Center returns the midpoint of b.
func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the edge lengths of b.
func (b Box) Extent() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Extend returns the smallest box containing both b and o.
func (b Box) Extend(o Box) Box {
	for d := 0; d < Dims; d++ {
		b.Min[d] = math.Min(b.Min[d], o.Min[d])
		b.Max[d] = math.Max(b.Max[d], o.Max[d])
	}
	return b
}

// Union returns the tightest box containing every box in boxes.
// It returns EmptyBox for an empty slice.
func Union(boxes ...Box) Box {
	u := EmptyBox()
	for _, b := range boxes {
		u = u.Extend(b)
	}
	return u
}

// Overlaps reports whether a and b intersect in every dimension. Touching boxes
// overlap. The test stops at the first separating axis.
func Overlaps(a, b Box) bool {
	for d := 0; d < Dims; d++ {
		if a.Min[d] > b.Max[d] || b.Min[d] > a.Max[d] {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p lies inside b, boundary included.
func ContainsPoint(b Box, p mgl64.Vec3) bool {
	for d := 0; d < Dims; d++ {
		if p[d] < b.Min[d] || p[d] > b.Max[d] {
			return false
		}
	}
	return true
}
