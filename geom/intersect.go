package geom

import "github.com/go-gl/mathgl/mgl64"

// SpheresOverlap reports whether two spheres intersect. The comparison is done on
// squared distances so no square root is taken.
func SpheresOverlap(c1 mgl64.Vec3, r1 float64, c2 mgl64.Vec3, r2 float64) bool {
	rr := r1 + r2
	return c1.Sub(c2).LenSqr() <= rr*rr
}

// SphereContains reports whether p lies inside or on the sphere (c, r).
func SphereContains(c mgl64.Vec3, r float64, p mgl64.Vec3) bool {
	return c.Sub(p).LenSqr() <= r*r
}

// Intersects is the exact overlap decision between two volumes.
//
// Sphere and point pairs use their exact predicates. As soon as a box is involved
// the enclosing boxes are compared, which makes point/box a containment test.
func Intersects(a, b Volume) bool {
	switch a.Kind {
	case KindSphere:
		switch b.Kind {
		case KindSphere:
			return SpheresOverlap(a.Center, a.Radius, b.Center, b.Radius)
		case KindPoint:
			return SphereContains(a.Center, a.Radius, b.Center)
		}
	case KindPoint:
		switch b.Kind {
		case KindSphere:
			return SphereContains(b.Center, b.Radius, a.Center)
		case KindPoint:
			return a.Center == b.Center
		case KindBox:
			return ContainsPoint(b.Bounds(), a.Center)
		}
	case KindBox:
		if b.Kind == KindPoint {
			return ContainsPoint(a.Bounds(), b.Center)
		}
	}
	return Overlaps(a.Bounds(), b.Bounds())
}
